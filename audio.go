package main

import (
	"bytes"
	"encoding/binary"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	chimeSampleRate = 44100
	chimeFrequency  = 880.0 // A5
	chimeDuration   = 300 * time.Millisecond
)

// Global audio context singleton
var (
	globalAudioCtx     *oto.Context
	globalAudioCtxOnce sync.Once
	audioCtxReady      bool
)

// initAudioContext initializes the global audio context once
func initAudioContext() {
	globalAudioCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   chimeSampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			log.Printf("Failed to initialize audio context: %v", err)
			return
		}

		// Wait for the hardware audio devices to be ready
		<-readyChan

		globalAudioCtx = ctx
		audioCtxReady = true
		log.Println("Audio context initialized successfully")
	})
}

// playSaveChime plays a short confirmation tone after an event was
// saved. The tone is synthesized, so no sound asset ships with the
// binary.
func playSaveChime() {
	initAudioContext()

	if !audioCtxReady || globalAudioCtx == nil {
		log.Printf("Audio context not ready")
		return
	}

	pcm := synthesizeChime()

	// Play the sound in a goroutine so it doesn't block
	go func() {
		player := globalAudioCtx.NewPlayer(bytes.NewReader(pcm))
		player.Play()

		for player.IsPlaying() {
			time.Sleep(time.Millisecond)
		}

		if err := player.Close(); err != nil {
			log.Printf("Failed to close audio player: %v", err)
		}
	}()
}

// synthesizeChime renders a decaying sine tone as 16-bit LE mono PCM.
func synthesizeChime() []byte {
	samples := int(float64(chimeSampleRate) * chimeDuration.Seconds())
	buf := &bytes.Buffer{}

	for i := 0; i < samples; i++ {
		t := float64(i) / chimeSampleRate
		decay := 1.0 - float64(i)/float64(samples)
		value := math.Sin(2*math.Pi*chimeFrequency*t) * decay * 0.3

		binary.Write(buf, binary.LittleEndian, int16(value*math.MaxInt16))
	}

	return buf.Bytes()
}

package ffmpeg

import "time"

const (
	name = "ffmpeg"

	// Raw little-endian float PCM, the layout decode.PCMFloat32 parses.
	sampleFormat = "f32le"
	codec        = "pcm_f32le"

	// Slow hard-drives spinning up or network retrieved resources may cause timeouts if too aggressive.
	timeout = 120 * time.Second
)

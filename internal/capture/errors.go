package capture

import "github.com/ansel1/merry/v2"

var (
	// ErrDecode marks a storyboard image that could not be decoded. It is
	// recorded, never returned from a render.
	ErrDecode = merry.Sentinel("image decode failed")
	// ErrMetadata means the voiceover duration could not be determined.
	ErrMetadata = merry.Sentinel("audio metadata unavailable")
	// ErrCapability means the host cannot record any supported format.
	ErrCapability = merry.Sentinel("recording not supported")
	// ErrRecording is a failure of the recording session after it started.
	ErrRecording = merry.Sentinel("recording failed")
)

func wrap(sentinel error, cause error, format string, args ...any) error {
	opts := []merry.Wrapper{merry.WithMessagef(format, args...)}
	if cause != nil {
		opts = append(opts, merry.WithCause(cause))
	}
	return merry.Wrap(sentinel, opts...)
}

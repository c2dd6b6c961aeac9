package capture

import (
	"context"
	"strings"

	"github.com/samber/lo"
)

// Format is a recordable container/codec combination.
type Format struct {
	MIME       string
	Extension  string
	Muxer      string
	VideoCodec string
	AudioCodec string
	VideoArgs  []string
	MuxArgs    []string
}

// Candidates in order of preference.
var Candidates = []Format{
	{
		MIME:       "video/webm;codecs=vp9,opus",
		Extension:  "webm",
		Muxer:      "webm",
		VideoCodec: "libvpx-vp9",
		AudioCodec: "libopus",
		VideoArgs:  []string{"-deadline", "realtime", "-cpu-used", "8", "-row-mt", "1", "-b:v", "4M"},
	},
	{
		MIME:       "video/webm",
		Extension:  "webm",
		Muxer:      "webm",
		VideoCodec: "libvpx",
		AudioCodec: "libvorbis",
		VideoArgs:  []string{"-deadline", "realtime", "-cpu-used", "8", "-b:v", "4M"},
	},
	{
		MIME:       "video/mp4",
		Extension:  "mp4",
		Muxer:      "mp4",
		VideoCodec: "libx264",
		AudioCodec: "aac",
		VideoArgs:  []string{"-preset", "veryfast", "-tune", "stillimage", "-crf", "23"},
		MuxArgs:    []string{"-movflags", "frag_keyframe+empty_moov"},
	},
}

// FileName is the suggested download name for a recording in f.
func (f Format) FileName() string {
	return "final-video." + f.Extension
}

// BaseMIME drops codec parameters, e.g. for a Content-Type header.
func (f Format) BaseMIME() string {
	base, _, _ := strings.Cut(f.MIME, ";")
	return base
}

// EncoderLister reports the encoders available to the recorder.
type EncoderLister func(ctx context.Context) (map[string]bool, error)

// Negotiate picks the first candidate whose encoders are all available.
func Negotiate(ctx context.Context, list EncoderLister, candidates []Format) (Format, error) {
	encoders, err := list(ctx)
	if err != nil {
		return Format{}, wrap(ErrCapability, err, "cannot list encoders")
	}

	f, ok := lo.Find(candidates, func(f Format) bool {
		return encoders[f.VideoCodec] && encoders[f.AudioCodec]
	})
	if !ok {
		tried := lo.Map(candidates, func(f Format, _ int) string { return f.MIME })
		return Format{}, wrap(ErrCapability, nil, "no supported recording format among %s", strings.Join(tried, ", "))
	}
	return f, nil
}

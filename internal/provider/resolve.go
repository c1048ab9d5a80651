package provider

import (
	"errors"
	"strings"

	"manifold/internal/record"
)

// StreamsByKind returns every stream of the given kind, in declaration
// order.
func StreamsByKind(src Source, kind record.Kind) []StreamInfo {
	var out []StreamInfo
	for _, info := range src.Streams() {
		if info.Kind == kind {
			out = append(out, info)
		}
	}
	return out
}

// StreamByLabel returns the first stream whose label contains any of the
// candidates, case-insensitively.
func StreamByLabel(src Source, candidates ...string) (StreamInfo, bool) {
	for _, info := range src.Streams() {
		if info.Label == "" {
			continue
		}
		label := strings.ToLower(info.Label)
		for _, candidate := range candidates {
			if strings.Contains(label, strings.ToLower(candidate)) {
				return info, true
			}
		}
	}
	return StreamInfo{}, false
}

// ResolveRGBStream picks the RGB camera stream: label match first, then any
// image stream as a fallback.
func ResolveRGBStream(src Source) (StreamInfo, error) {
	if info, ok := StreamByLabel(src, "camera-rgb", "rgb"); ok {
		return info, nil
	}
	images := StreamsByKind(src, record.KindImage)
	if len(images) == 0 {
		return StreamInfo{}, errors.New("no image streams found for rgb export")
	}
	return images[0], nil
}

// EyeSelection maps eye names ("left", "right", or "mono") to streams.
type EyeSelection map[string]StreamInfo

// ResolveEyeStreams discovers eye-tracking streams. Captures may carry a
// single mono stream covering both eyes; that is only used when no
// per-eye stream is found.
func ResolveEyeStreams(src Source) (EyeSelection, error) {
	selection := EyeSelection{}
	if left, ok := StreamByLabel(src, "camera-et-left", "et-left", "eye-left"); ok {
		selection["left"] = left
	}
	if right, ok := StreamByLabel(src, "camera-et-right", "et-right", "eye-right"); ok {
		selection["right"] = right
	}
	if len(selection) == 0 {
		if mono, ok := StreamByLabel(src, "camera-et", "et"); ok {
			selection["mono"] = mono
		}
	}
	if len(selection) == 0 {
		return nil, errors.New("no eye-tracking streams discovered")
	}
	return selection, nil
}

// ResolveAudioStream picks the microphone stream.
func ResolveAudioStream(src Source) (StreamInfo, error) {
	streams := StreamsByKind(src, record.KindAudio)
	if len(streams) == 0 {
		return StreamInfo{}, errors.New("no audio streams present")
	}
	return streams[0], nil
}

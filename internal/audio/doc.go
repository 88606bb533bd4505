// Package audio renders and plays alarm cues.
//
// A Cue is rendered once, either synthesized from a Shape or decoded from a
// wav, mp3 or flac file, and kept in memory. A Track mixes cues in flight and
// is the single streamer handed to an audio device; the browser gets the same
// cue encoded as WAV.
package audio

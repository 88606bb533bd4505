// Package web serves the clock face to a browser.
//
// The page is rendered once with pongo2 and then kept current over a
// websocket: every clock reading arrives as a "tick" frame, every alarm change
// as a "state" frame and every cue as a "cue" frame, on which the page plays
// /cue.wav. A small JSON API replaces the page's time input and toggle button
// for scripts.
package web

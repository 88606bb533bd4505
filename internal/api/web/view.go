package web

import (
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// labels are the user-visible strings of the page.
type labels struct {
	Title    string
	Panel    string
	Sounding string
	Armed    string
	Off      string
	Stop     string
	On       string
	Disabled string
}

//nolint:gochecknoglobals // Static translations.
var (
	japaneseLabels = labels{
		Title:    "アナログ時計",
		Panel:    "アラーム設定",
		Sounding: "🔔 アラームが鳴っています！",
		Armed:    "⏰ アラーム設定: ",
		Off:      "アラーム: オフ",
		Stop:     "アラーム停止",
		On:       "ON",
		Disabled: "OFF",
	}
	englishLabels = labels{
		Title:    "Analog clock",
		Panel:    "Alarm",
		Sounding: "🔔 The alarm is ringing!",
		Armed:    "⏰ Alarm set: ",
		Off:      "Alarm: off",
		Stop:     "Stop alarm",
		On:       "ON",
		Disabled: "OFF",
	}
)

// labelsFor returns Japanese labels for Japanese locales and English otherwise.
func labelsFor(tag language.Tag) labels {
	if base, _ := tag.Base(); base.String() == "ja" {
		return japaneseLabels
	}

	return englishLabels
}

// statusText is the line under the time input.
func (l labels) statusText(s *domain.Snapshot) string {
	switch s.Status() {
	case domain.StatusSounding:
		return l.Sounding
	case domain.StatusArmed:
		return l.Armed + s.Target
	case domain.StatusOff:
		return l.Off
	default:
		return ""
	}
}

// buttonText is the caption of the toggle button.
func (l labels) buttonText(s *domain.Snapshot) string {
	switch {
	case s.State == domain.StateSounding:
		return l.Stop
	case s.Enabled:
		return l.On
	default:
		return l.Disabled
	}
}

// alarmView is the JSON form of the alarm.
type alarmView struct {
	Target        string     `json:"target"`
	Enabled       bool       `json:"enabled"`
	State         string     `json:"state"`
	Status        string     `json:"status"`
	StatusText    string     `json:"status_text"`
	Button        string     `json:"button"`
	SoundingSince *time.Time `json:"sounding_since,omitempty"`
	Cues          int        `json:"cues"`
}

func (l labels) alarmView(s *domain.Snapshot) *alarmView {
	v := &alarmView{
		Target:     s.Target,
		Enabled:    s.Enabled,
		State:      s.State.String(),
		Status:     s.Status().String(),
		StatusText: l.statusText(s),
		Button:     l.buttonText(s),
		Cues:       s.Cues,
	}

	if !s.SoundingSince.IsZero() {
		since := s.SoundingSince
		v.SoundingSince = &since
	}

	return v
}

// handsView is the JSON form of the hand rotations in degrees.
type handsView struct {
	Hour   float64 `json:"hour"`
	Minute float64 `json:"minute"`
	Second float64 `json:"second"`
}

// frame is one websocket message; the same shape answers GET /api/state.
type frame struct {
	Type    string     `json:"type"`
	Time    *time.Time `json:"time,omitempty"`
	Readout string     `json:"readout,omitempty"`
	Hands   *handsView `json:"hands,omitempty"`
	Alarm   *alarmView `json:"alarm,omitempty"`
}

// Frame types.
const (
	frameTick  = "tick"
	frameState = "state"
	frameCue   = "cue"
)

// svgLine is a segment with coordinates formatted for the template.
type svgLine struct {
	X1, Y1, X2, Y2 string
}

// svgText is a numeral with coordinates formatted for the template.
type svgText struct {
	Label string
	X, Y  string
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func toSVGLine(s clock.Segment) svgLine {
	return svgLine{
		X1: coord(s.From.X),
		Y1: coord(s.From.Y),
		X2: coord(s.To.X),
		Y2: coord(s.To.Y),
	}
}

func toSVGLines(segments []clock.Segment) []svgLine {
	lines := make([]svgLine, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, toSVGLine(s))
	}

	return lines
}

func toSVGTexts(numerals []clock.Numeral) []svgText {
	texts := make([]svgText, 0, len(numerals))
	for _, n := range numerals {
		texts = append(texts, svgText{Label: n.Label, X: coord(n.At.X), Y: coord(n.At.Y)})
	}

	return texts
}

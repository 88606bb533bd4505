package alarm

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// Struct field names.
const (
	fieldTime          = "time"
	fieldTarget        = "target"
	fieldEnabled       = "enabled"
	fieldState         = "state"
	fieldStatus        = "status"
	fieldSoundingSince = "sounding_since"
	fieldCues          = "cues"
)

// errEmptyMessage is returned when decoding a nil message.
var errEmptyMessage = errors.New("empty alarm message")

// Update is one decoded response: the alarm and the server clock reading it
// was taken at.
type Update struct {
	Time     time.Time
	Snapshot *domain.Snapshot
	// Message is the decoded Struct.
	Message *structpb.Struct
}

// toProto converts a snapshot taken at the given time into a Struct.
func toProto(snapshot *domain.Snapshot, at time.Time) *structpb.Struct {
	if snapshot == nil {
		snapshot = new(domain.Snapshot)
	}

	fields := map[string]*structpb.Value{
		fieldTime:    structpb.NewStringValue(at.Format(time.RFC3339Nano)),
		fieldTarget:  structpb.NewStringValue(snapshot.Target),
		fieldEnabled: structpb.NewBoolValue(snapshot.Enabled),
		fieldState:   structpb.NewStringValue(snapshot.State.String()),
		fieldStatus:  structpb.NewStringValue(snapshot.Status().String()),
		fieldCues:    structpb.NewNumberValue(float64(snapshot.Cues)),
	}

	if !snapshot.SoundingSince.IsZero() {
		fields[fieldSoundingSince] = structpb.NewStringValue(snapshot.SoundingSince.Format(time.RFC3339Nano))
	}

	return &structpb.Struct{Fields: fields}
}

// FromProto decodes a response Struct.
func FromProto(msg *structpb.Struct) (*Update, error) {
	if msg == nil {
		return nil, errEmptyMessage
	}

	fields := msg.GetFields()

	state, err := domain.ParseState(fields[fieldState].GetStringValue())
	if err != nil {
		return nil, err
	}

	update := &Update{
		Message: msg,
		Snapshot: &domain.Snapshot{
			Config: domain.Config{
				Target:  fields[fieldTarget].GetStringValue(),
				Enabled: fields[fieldEnabled].GetBoolValue(),
			},
			State: state,
			Cues:  int(fields[fieldCues].GetNumberValue()),
		},
	}

	if update.Time, err = parseTime(fields[fieldTime]); err != nil {
		return nil, fmt.Errorf("%s: %w", fieldTime, err)
	}

	if update.Snapshot.SoundingSince, err = parseTime(fields[fieldSoundingSince]); err != nil {
		return nil, fmt.Errorf("%s: %w", fieldSoundingSince, err)
	}

	return update, nil
}

// parseTime decodes an optional RFC 3339 field.
func parseTime(v *structpb.Value) (time.Time, error) {
	s := v.GetStringValue()
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, s)
}

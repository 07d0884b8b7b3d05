package chat

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawRecord is a source document before normalization. CreatedAt is either a
// time.Time or a string; Identity may be a string or any numeric type.
type RawRecord struct {
	ID        string
	Role      string
	Text      string
	CreatedAt any
	Identity  any
	Name      string
}

// Normalizer converts raw source records into Messages in a single zone.
type Normalizer struct {
	loc *time.Location
	// naiveLocal interprets timestamps without an offset as already local
	// instead of UTC.
	naiveLocal bool
}

// NewNormalizer returns a Normalizer for the given zone. A nil location means UTC.
func NewNormalizer(loc *time.Location, naiveLocal bool) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, naiveLocal: naiveLocal}
}

// Location returns the reporting zone.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize validates raw and returns the normalized Message. Records without a
// role, text or timestamp yield an error wrapping ErrMalformedRecord.
func (n *Normalizer) Normalize(conversationID string, raw RawRecord) (Message, error) {
	role, ok := ParseRole(raw.Role)
	if !ok {
		if strings.TrimSpace(raw.Role) == "" {
			return Message{}, malformed(conversationID, raw.ID, "missing role")
		}
		return Message{}, malformed(conversationID, raw.ID, fmt.Sprintf("unknown role %q", raw.Role))
	}
	if raw.Text == "" {
		return Message{}, malformed(conversationID, raw.ID, "missing text")
	}
	ts, err := n.timestamp(raw.CreatedAt)
	if err != nil {
		return Message{}, malformed(conversationID, raw.ID, err.Error())
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = DefaultDisplayName
	}

	return Message{
		ConversationID: conversationID,
		ID:             raw.ID,
		Role:           role,
		Identity:       IdentityString(raw.Identity),
		Text:           raw.Text,
		Timestamp:      ts,
		DisplayName:    name,
	}, nil
}

// naiveLayouts are accepted for string timestamps that carry no zone offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 03:04:05 PM",
}

func (n *Normalizer) timestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, fmt.Errorf("missing timestamp")
		}
		return t.In(n.loc), nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, fmt.Errorf("missing timestamp")
		}
		return t.In(n.loc), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, fmt.Errorf("missing timestamp")
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed.In(n.loc), nil
		}
		naiveZone := time.UTC
		if n.naiveLocal {
			naiveZone = n.loc
		}
		for _, layout := range naiveLayouts {
			if parsed, err := time.ParseInLocation(layout, s, naiveZone); err == nil {
				return parsed.In(n.loc), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
	case nil:
		return time.Time{}, fmt.Errorf("missing timestamp")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// IdentityString renders a source identity in the one canonical string form used
// for exclusion matching. Integral numbers print without a fractional part, so
// 42, 42.0 and "42" all become "42".
func IdentityString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case *string:
		if id == nil {
			return ""
		}
		return strings.TrimSpace(*id)
	case int:
		return strconv.Itoa(id)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float32:
		return formatFloatIdentity(float64(id))
	case float64:
		return formatFloatIdentity(id)
	case json.Number:
		if i, err := id.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := id.Float64(); err == nil {
			return formatFloatIdentity(f)
		}
		return id.String()
	case fmt.Stringer:
		return strings.TrimSpace(id.String())
	default:
		return strings.TrimSpace(fmt.Sprint(id))
	}
}

func formatFloatIdentity(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

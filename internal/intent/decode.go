package intent

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ashureev/influencer-desk/internal/domain"
)

// Wire keys of the extractor contract.
const (
	keySlotUpdates       = "slot_updates"
	keyIsQuestion        = "is_question"
	keySuggestedNextStep = "suggested_next_step"
	skipMarker           = "skip"
)

// Decode converts an untrusted JSON-shaped object into a Result. Entries for
// unknown slots or with payloads of the wrong shape are dropped. Only a
// missing or non-object slot_updates makes the whole response malformed.
func Decode(raw map[string]any) (Result, error) {
	if raw == nil {
		return Result{}, ErrMalformed
	}
	res := Result{Updates: make(map[domain.Slot]domain.Value)}

	if q, ok := raw[keyIsQuestion].(bool); ok {
		res.IsQuestion = q
	}
	if s, ok := raw[keySuggestedNextStep].(string); ok {
		res.SuggestedNextStep = strings.TrimSpace(s)
	}

	updatesRaw, present := raw[keySlotUpdates]
	if !present || updatesRaw == nil {
		return res, nil
	}
	updates, ok := updatesRaw.(map[string]any)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s is %T", ErrMalformed, keySlotUpdates, updatesRaw)
	}

	for name, payload := range updates {
		slot, known := domain.ParseSlot(name)
		if !known {
			continue
		}
		if v, ok := decodeValue(slot, payload); ok {
			res.Updates[slot] = v
		}
	}
	return res, nil
}

// Encode is the inverse of Decode for a subset of values; it produces the
// session_fields object sent to the extractor.
func Encode(fields domain.Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for slot, v := range fields {
		switch v.Kind {
		case domain.KindText:
			out[string(slot)] = v.Text
		case domain.KindSet:
			items := make([]any, len(v.Items))
			for i, it := range v.Items {
				items[i] = it
			}
			out[string(slot)] = items
		case domain.KindRange:
			r := map[string]any{}
			if v.Range.Min != nil {
				r["min"] = float64(*v.Range.Min)
			}
			if v.Range.Max != nil {
				r["max"] = float64(*v.Range.Max)
			}
			out[string(slot)] = r
		case domain.KindBool:
			out[string(slot)] = v.Bool
		case domain.KindSkip:
			out[string(slot)] = skipMarker
		}
	}
	return out
}

func decodeValue(slot domain.Slot, payload any) (domain.Value, bool) {
	if s, ok := payload.(string); ok && strings.EqualFold(strings.TrimSpace(s), skipMarker) {
		if slot.IsRegistration() {
			return domain.Value{}, false
		}
		return domain.SkipValue(), true
	}

	var v domain.Value
	switch slot.Kind() {
	case domain.KindText:
		v = domain.TextValue(asText(payload))
	case domain.KindSet:
		v = domain.SetValue(asStrings(payload)...)
	case domain.KindRange:
		r, ok := asRange(payload)
		if !ok {
			return domain.Value{}, false
		}
		v = domain.RangeValue(r)
	case domain.KindBool:
		b, ok := asBool(payload)
		if !ok {
			return domain.Value{}, false
		}
		v = domain.BoolValue(b)
	}
	if v.IsEmpty() {
		return domain.Value{}, false
	}
	return v, true
}

func asText(payload any) string {
	switch p := payload.(type) {
	case string:
		return strings.TrimSpace(p)
	case float64:
		if n, ok := asInt(p); ok {
			return strconv.Itoa(n)
		}
	}
	return ""
}

func asStrings(payload any) []string {
	switch p := payload.(type) {
	case string:
		return strings.Split(p, ",")
	case []any:
		out := make([]string, 0, len(p))
		for _, it := range p {
			if s := asText(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asRange(payload any) (domain.Range, bool) {
	switch p := payload.(type) {
	case float64:
		n, ok := asInt(p)
		if !ok {
			return domain.Range{}, false
		}
		return domain.Range{Min: domain.IntPtr(n), Max: domain.IntPtr(n)}, true
	case map[string]any:
		var r domain.Range
		for key, dst := range map[string]**int{"min": &r.Min, "max": &r.Max} {
			raw, present := p[key]
			if !present || raw == nil {
				continue
			}
			f, isNum := raw.(float64)
			if !isNum {
				return domain.Range{}, false
			}
			n, ok := asInt(f)
			if !ok {
				return domain.Range{}, false
			}
			*dst = domain.IntPtr(n)
		}
		return r, !r.IsOpen()
	}
	return domain.Range{}, false
}

func asBool(payload any) (bool, bool) {
	switch p := payload.(type) {
	case bool:
		return p, true
	case string:
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "yes", "true", "да":
			return true, true
		case "no", "false", "нет":
			return false, true
		}
	}
	return false, false
}

func asInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

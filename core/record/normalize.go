package record

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/umoja/core"
)

type (
	// RawData is the untyped field map arriving from a form.
	RawData map[string]interface{}

	// Payload is the exact column set sent to the row store.
	Payload map[string]interface{}
)

// mockable
var nowFunc = time.Now

// normalizers maps each kind to its payload rule; kinds absent here pass
// their fields through unchanged.
var normalizers = map[Kind]func(RawData) (Payload, error){
	KindSettings:    normalizeSettings,
	KindSchool:      normalizeSchool,
	KindStudent:     normalizeStudent,
	KindTransaction: normalizeTransaction,
	KindUpdate:      normalizeUpdate,
}

// Normalize maps a raw form field map to the write payload the row store
// expects for the given kind. When editID is non-empty the payload targets an
// existing row: the identifier is attached, coerced to numeric for
// numeric-identifier kinds. It is pure; no I/O happens here.
func Normalize(kind Kind, raw RawData, editID string) (Payload, error) {
	fn, ok := normalizers[kind]
	if !ok {
		fn = passthrough
	}
	payload, err := fn(raw)
	if err != nil {
		return nil, err
	}

	if editID != "" && kind != KindSettings {
		if kind.HasNumericID() {
			id, err := strconv.ParseInt(editID, 10, 64)
			if err != nil {
				return nil, core.NewValidationError(
					errors.Errorf("invalid %s id %q", kind.Table(), editID),
					core.FieldError{Field: "id", Error: "must be numeric"},
				)
			}
			payload["id"] = id
		} else {
			payload["id"] = editID
		}
	}
	return payload, nil
}

func passthrough(raw RawData) (Payload, error) {
	payload := make(Payload, len(raw))
	for k, v := range raw {
		payload[k] = v
	}
	return payload, nil
}

func normalizeSettings(raw RawData) (Payload, error) {
	payload, _ := passthrough(raw)
	payload["id"] = SettingsSentinelID // always the sentinel, regardless of caller input
	return payload, nil
}

func normalizeSchool(raw RawData) (Payload, error) {
	return project(raw, "name", "teacherName", "teacherPhone", "teacherImage", "established"), nil
}

func normalizeStudent(raw RawData) (Payload, error) {
	return project(raw, "school_id", "name", "fatherName", "motherName", "mobile", "className", "roll", "image"), nil
}

func normalizeTransaction(raw RawData) (Payload, error) {
	amount, err := parseAmount(raw["amount"])
	if err != nil {
		return nil, err
	}
	return Payload{
		"userId": raw["userId"],
		"amount": amount,
		"month":  raw["month"],
		"date":   nowFunc().UTC().Format(time.RFC3339),
	}, nil
}

func normalizeUpdate(raw RawData) (Payload, error) {
	payload, _ := passthrough(raw)
	// display date, stamped once at write time (dd/mm/yyyy)
	payload["date"] = nowFunc().Format("02/01/2006")
	return payload, nil
}

// project keeps only the declared columns so UI-only fields never leak to the
// store. Missing columns are written as empty strings.
func project(raw RawData, fields ...string) Payload {
	payload := make(Payload, len(fields))
	for _, f := range fields {
		if v, ok := raw[f]; ok {
			payload[f] = v
		} else {
			payload[f] = ""
		}
	}
	return payload
}

func parseAmount(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, nil
		}
	}
	return 0, core.NewValidationError(
		errors.Errorf("invalid amount %v", v),
		core.FieldError{Field: "amount", Error: "must be a number"},
	)
}

package content

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EncodeVector stores an embedding as a JSON array.
func EncodeVector(v []float32) datatypes.JSON {
	if len(v) == 0 {
		return nil
	}
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

// DecodeVector returns nil for empty or malformed payloads.
func DecodeVector(raw datatypes.JSON) []float32 {
	if len(raw) == 0 {
		return nil
	}
	var out []float32
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func EncodeStrings(v []string) datatypes.JSON {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

func DecodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return []string{}
	}
	return out
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// marshalJSONB は自由形式の項目をJSONB列に保存するためのバイト列に変換する。
// nilは空オブジェクトとして保存する。
func marshalJSONB(v map[string]any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode jsonb: %w", err)
	}
	return b, nil
}

// unmarshalJSONB はJSONB列の値をmapに復元する。
func unmarshalJSONB(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jsonb: %w", err)
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"quiz-engine/internal/domain"
)

// PoolLoader reads question pools from JSON files in a directory. Pool "general"
// maps to general.json. A loader built with NewSinglePoolLoader serves one file
// under one fixed pool id.
type PoolLoader struct {
	dir    string
	single string
	poolID string
}

func NewPoolLoader(dir string) *PoolLoader {
	return &PoolLoader{dir: dir}
}

func NewSinglePoolLoader(path, poolID string) *PoolLoader {
	return &PoolLoader{single: path, poolID: poolID}
}

func (l *PoolLoader) LoadPool(_ context.Context, poolID string) (domain.Pool, error) {
	path, err := l.path(poolID)
	if err != nil {
		return domain.Pool{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Pool{}, fmt.Errorf("%w: %s", domain.ErrPoolNotFound, poolID)
		}
		return domain.Pool{}, fmt.Errorf("read pool %s: %w", poolID, err)
	}
	pool, err := Decode(data)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("decode pool %s: %w", poolID, err)
	}
	pool.ID = poolID
	return pool, nil
}

func (l *PoolLoader) path(poolID string) (string, error) {
	if l.single != "" {
		if poolID != l.poolID {
			return "", fmt.Errorf("%w: %s", domain.ErrPoolNotFound, poolID)
		}
		return l.single, nil
	}
	if poolID == "" || strings.ContainsAny(poolID, `/\`) || poolID == "." || poolID == ".." {
		return "", fmt.Errorf("%w: invalid pool id %q", domain.ErrInvalidArgument, poolID)
	}
	return filepath.Join(l.dir, poolID+".json"), nil
}

type poolDocument struct {
	Questions []questionRecord `json:"questions"`
}

type questionRecord struct {
	ID          flexibleID `json:"id"`
	Section     string     `json:"section"`
	Question    string     `json:"question"`
	Options     []string   `json:"options"`
	AnswerIndex int        `json:"answer_index"`
}

// flexibleID accepts both numeric and string ids.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("question id must be a string or number: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

// Decode parses a pool document of the form {"questions": [...]} and validates every question.
func Decode(data []byte) (domain.Pool, error) {
	var doc poolDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Pool{}, err
	}
	pool := domain.Pool{Questions: make([]domain.Question, 0, len(doc.Questions))}
	seen := make(map[string]struct{}, len(doc.Questions))
	for _, rec := range doc.Questions {
		q := domain.Question{
			ID:          string(rec.ID),
			Category:    rec.Section,
			Prompt:      rec.Question,
			Options:     rec.Options,
			AnswerIndex: rec.AnswerIndex,
		}
		if err := q.Validate(); err != nil {
			return domain.Pool{}, err
		}
		if _, dup := seen[q.ID]; dup {
			return domain.Pool{}, fmt.Errorf("%w: duplicate question id %s", domain.ErrInvalidArgument, q.ID)
		}
		seen[q.ID] = struct{}{}
		pool.Questions = append(pool.Questions, q)
	}
	return pool, nil
}

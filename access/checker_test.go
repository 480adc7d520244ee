package access

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"tocview/index"
)

type countingIndex struct {
	index.Index
	calls int
}

func (c *countingIndex) Document(ctx context.Context, q index.Query, fields []string) (index.Document, error) {
	c.calls++
	return c.Index.Document(ctx, q, fields)
}

type brokenIndex struct {
	index.Index
}

func (brokenIndex) Document(context.Context, index.Query, []string) (index.Document, error) {
	return nil, index.ErrUnreachable
}

func TestConditionChecker_Check(t *testing.T) {
	idx := index.NewMemory(
		index.Document{index.FieldPI: "OPEN"},
		index.Document{index.FieldPI: "FREE", index.FieldAccessCondition: OpenAccess},
		index.Document{index.FieldPI: "LISTONLY", index.FieldAccessCondition: "METADATA"},
		index.Document{index.FieldPI: "MIXED", index.FieldAccessCondition: []any{"METADATA", "PRINT"}},
		index.Document{index.FieldPI: "SECRET", index.FieldAccessCondition: "UNKNOWN"},
		index.Document{index.FieldPI: "PART", index.FieldAccessCondition: "METADATA"},
		index.Document{index.FieldTopStruct: "PART", index.FieldLogID: "LOG_2", index.FieldAccessCondition: "PRINT"},
	)
	grants := map[string][]Privilege{
		"METADATA": {PrivilegeList},
		"PRINT":    {PrivilegeList, PrivilegeDownloadPDF},
	}
	c := NewConditionChecker(idx, grants, zaptest.NewLogger(t))

	tests := []struct {
		name      string
		record    string
		logical   string
		privilege Privilege
		want      bool
	}{
		{"no conditions", "OPEN", "", PrivilegeDownloadPDF, true},
		{"open access", "FREE", "", PrivilegeDownloadPDF, true},
		{"list allowed", "LISTONLY", "", PrivilegeList, true},
		{"pdf denied", "LISTONLY", "", PrivilegeDownloadPDF, false},
		{"all conditions must allow", "MIXED", "", PrivilegeDownloadPDF, false},
		{"unknown condition", "SECRET", "", PrivilegeList, false},
		{"section conditions win", "PART", "LOG_2", PrivilegeDownloadPDF, true},
		{"section without conditions uses record", "PART", "LOG_9", PrivilegeDownloadPDF, false},
		{"absent record", "NOPE", "", PrivilegeList, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Check(context.Background(), tt.record, tt.logical, tt.privilege)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Check(%s, %s, %s) = %v, want %v", tt.record, tt.logical, tt.privilege, got, tt.want)
			}
		})
	}
}

func TestConditionChecker_Cache(t *testing.T) {
	idx := &countingIndex{Index: index.NewMemory(index.Document{index.FieldPI: "R1", index.FieldAccessCondition: "METADATA"})}
	c := NewConditionChecker(idx, map[string][]Privilege{"METADATA": {PrivilegeList}}, zaptest.NewLogger(t))

	for range 3 {
		if ok, err := c.Check(context.Background(), "R1", "", PrivilegeList); err != nil || !ok {
			t.Fatalf("Check() = %v, %v", ok, err)
		}
	}
	if idx.calls != 1 {
		t.Errorf("index queried %d times, want 1", idx.calls)
	}
}

func TestConditionChecker_IndexFailure(t *testing.T) {
	c := NewConditionChecker(brokenIndex{}, nil, zaptest.NewLogger(t))
	_, err := c.Check(context.Background(), "R1", "", PrivilegeList)
	if !errors.Is(err, index.ErrUnreachable) {
		t.Errorf("Check() error = %v, want ErrUnreachable", err)
	}
}

func TestAllowAll(t *testing.T) {
	ok, err := AllowAll{}.Check(context.Background(), "any", "", PrivilegeDownloadPDF)
	if !ok || err != nil {
		t.Errorf("AllowAll.Check() = %v, %v", ok, err)
	}
}

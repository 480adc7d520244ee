// Package access decides whether a privilege is granted for a record or its
// logical section based on access conditions stored in the metadata index.
package access

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"tocview/index"
)

// Privilege is what caller wants to do with the record.
type Privilege string

const (
	PrivilegeList        Privilege = "list"
	PrivilegeDownloadPDF Privilege = "download_pdf"
)

// OpenAccess is the condition which grants every privilege.
const OpenAccess = "OPENACCESS"

// Checker answers permission questions for table of contents entries.
type Checker interface {
	Check(ctx context.Context, topRecordID, logicalID string, privilege Privilege) (bool, error)
}

type cacheKey struct {
	record, logical string
	privilege       Privilege
}

// ConditionChecker grants a privilege when every access condition of the
// record (or of its logical section when logical id is given and the section
// carries own conditions) allows it. Records without conditions are treated
// as open access, unknown conditions deny everything.
type ConditionChecker struct {
	idx    index.Index
	grants map[string][]Privilege
	log    *zap.Logger

	mu    sync.Mutex
	cache map[cacheKey]bool
}

// NewConditionChecker creates checker. grants maps access condition names to
// privileges they allow.
func NewConditionChecker(idx index.Index, grants map[string][]Privilege, log *zap.Logger) *ConditionChecker {
	return &ConditionChecker{
		idx:    idx,
		grants: grants,
		log:    log.Named("access"),
		cache:  make(map[cacheKey]bool),
	}
}

func (c *ConditionChecker) Check(ctx context.Context, topRecordID, logicalID string, privilege Privilege) (bool, error) {
	key := cacheKey{record: topRecordID, logical: logicalID, privilege: privilege}

	c.mu.Lock()
	granted, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return granted, nil
	}

	conditions, err := c.conditions(ctx, topRecordID, logicalID)
	if err != nil {
		return false, err
	}

	granted = true
	for _, cond := range conditions {
		if cond == OpenAccess {
			continue
		}
		if !slices.Contains(c.grants[cond], privilege) {
			granted = false
			break
		}
	}
	if !granted {
		c.log.Debug("Access denied",
			zap.String("record", topRecordID),
			zap.String("logid", logicalID),
			zap.String("privilege", string(privilege)),
			zap.Strings("conditions", conditions))
	}

	c.mu.Lock()
	c.cache[key] = granted
	c.mu.Unlock()
	return granted, nil
}

func (c *ConditionChecker) conditions(ctx context.Context, topRecordID, logicalID string) ([]string, error) {
	fields := []string{index.FieldAccessCondition}
	if len(logicalID) > 0 {
		doc, err := c.idx.Document(ctx,
			index.Where(index.FieldTopStruct, topRecordID).And(index.FieldLogID, logicalID), fields)
		if err != nil {
			return nil, fmt.Errorf("unable to get access conditions for %s/%s: %w", topRecordID, logicalID, err)
		}
		if conds := doc.Values(index.FieldAccessCondition); len(conds) > 0 {
			return conds, nil
		}
	}
	doc, err := c.idx.Document(ctx, index.Where(index.FieldPI, topRecordID), fields)
	if err != nil {
		return nil, fmt.Errorf("unable to get access conditions for %s: %w", topRecordID, err)
	}
	return doc.Values(index.FieldAccessCondition), nil
}

// AllowAll is a Checker granting everything.
type AllowAll struct{}

func (AllowAll) Check(context.Context, string, string, Privilege) (bool, error) {
	return true, nil
}

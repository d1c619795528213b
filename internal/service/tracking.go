package service

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/andy/casetrail/internal/domain"
	"github.com/mitchellh/hashstructure"
	"github.com/r3labs/diff/v3"
)

// Author identifies who changes are recorded for
type Author struct {
	Login string
	Name  string
}

// signer holds the author of new changes. Settings replace it while
// requests may be running.
type signer struct {
	mu     sync.RWMutex
	author Author
}

// SetAuthor changes who later changes are recorded for
func (s *signer) SetAuthor(author Author) {
	s.mu.Lock()
	s.author = author
	s.mu.Unlock()
}

func (s *signer) currentAuthor() Author {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.author
}

// trackedState is the part of an object whose changes are recorded
type trackedState struct {
	Name       string
	Attributes map[string]string
}

func stateOf(obj *domain.Object) trackedState {
	attrs := make(map[string]string, len(obj.Attributes))
	for code, value := range obj.Attributes {
		if value != "" {
			attrs[code] = value
		}
	}
	return trackedState{Name: obj.Name, Attributes: attrs}
}

// diffStates is swapped in tests to observe when a diff runs
var diffStates = diff.Diff

// stateHash fingerprints the tracked state of obj. It is stored with the
// object and compared on the next write.
func stateHash(obj *domain.Object) (string, error) {
	hash, err := hashstructure.Hash(stateOf(obj), nil)
	if err != nil {
		return "", fmt.Errorf("failed to hash object: %w", err)
	}
	return strconv.FormatUint(hash, 16), nil
}

// trackChanges returns the ops turning before into after and stamps after
// with its state hash. When the hash stored with before already matches the
// requested state, no diff runs and no ops are returned. Objects stored
// without a hash are always diffed.
func trackChanges(class *domain.ClassDef, before, after *domain.Object) ([]*domain.ChangeOp, error) {
	hash, err := stateHash(after)
	if err != nil {
		return nil, err
	}
	if before.StateHash != "" && before.StateHash == hash {
		return nil, nil
	}

	ops, err := buildOps(class, before, after)
	if err != nil {
		return nil, err
	}
	after.StateHash = hash
	return ops, nil
}

// buildOps returns one set_attribute op per field that differs between
// before and after, name first, then in class declaration order.
func buildOps(class *domain.ClassDef, before, after *domain.Object) ([]*domain.ChangeOp, error) {
	changelog, err := diffStates(stateOf(before), stateOf(after))
	if err != nil {
		return nil, fmt.Errorf("failed to diff object: %w", err)
	}

	changed := make(map[string]bool)
	for _, c := range changelog {
		switch {
		case len(c.Path) >= 1 && c.Path[0] == "Name":
			changed["name"] = true
		case len(c.Path) >= 2 && c.Path[0] == "Attributes":
			changed[c.Path[1]] = true
		}
	}

	codes := make([]string, 0, len(changed))
	for code := range changed {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return attributeRank(class, codes[i]) < attributeRank(class, codes[j])
	})

	ops := make([]*domain.ChangeOp, 0, len(codes))
	for _, code := range codes {
		opType := domain.OpSetAttributeScalar
		if att, ok := class.Attribute(code); ok && att.Type == domain.AttributeText {
			opType = domain.OpSetAttributeText
		}
		ops = append(ops, &domain.ChangeOp{
			OpType:   opType,
			ObjClass: after.Class,
			ObjKey:   after.ID,
			AttCode:  code,
			OldValue: before.Get(code),
			NewValue: after.Get(code),
		})
	}
	return ops, nil
}

func attributeRank(class *domain.ClassDef, code string) int {
	if code == "name" {
		return -1
	}
	for i, att := range class.Attributes {
		if att.Code == code {
			return i
		}
	}
	return len(class.Attributes)
}

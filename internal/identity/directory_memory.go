package identity

import (
	"context"
	"strings"
	"sync"

	"kidgate/pkg/domain"
	"kidgate/pkg/platform/sentinel"
	stringsutil "kidgate/pkg/platform/strings"
)

// InMemoryDirectory backs development and tests. It intentionally over-returns
// from Candidates; precision lives in the Resolver.
type InMemoryDirectory struct {
	mu     sync.RWMutex
	adults map[domain.AdultID]ResponsibleAdult
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{adults: make(map[domain.AdultID]ResponsibleAdult)}
}

func (d *InMemoryDirectory) Add(adult ResponsibleAdult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adults[adult.ID] = adult
}

func (d *InMemoryDirectory) Candidates(_ context.Context, digits string) ([]ResponsibleAdult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []ResponsibleAdult
	for _, a := range d.adults {
		if touches(a, digits) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (d *InMemoryDirectory) FindByID(_ context.Context, id domain.AdultID) (ResponsibleAdult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if a, ok := d.adults[id]; ok {
		return a, nil
	}
	return ResponsibleAdult{}, sentinel.ErrNotFound
}

// touches is the coarse candidate filter: substring on national ID or any
// phone, or shared 8-digit suffix for long inputs.
func touches(a ResponsibleAdult, digits string) bool {
	if strings.Contains(stringsutil.Digits(a.NationalID), digits) {
		return true
	}
	var suffix string
	if len(digits) >= suffixDigits {
		suffix = digits[len(digits)-suffixDigits:]
	}
	for _, p := range a.PhoneNumbers {
		norm := stringsutil.Digits(p)
		if strings.Contains(norm, digits) {
			return true
		}
		if suffix != "" && len(norm) >= suffixDigits && strings.HasSuffix(norm, suffix) {
			return true
		}
	}
	return false
}

type InMemoryChildDirectory struct {
	mu    sync.RWMutex
	names map[domain.ChildID]string
}

// NewInMemoryChildDirectory backs development and tests with a fixed name map.
func NewInMemoryChildDirectory() *InMemoryChildDirectory {
	return &InMemoryChildDirectory{names: make(map[domain.ChildID]string)}
}

func (d *InMemoryChildDirectory) Add(id domain.ChildID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[id] = name
}

func (d *InMemoryChildDirectory) DisplayName(_ context.Context, id domain.ChildID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.names[id]; ok {
		return name, nil
	}
	return "", sentinel.ErrNotFound
}

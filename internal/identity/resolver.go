package identity

import (
	"context"
	"fmt"
	"strings"

	dErrors "kidgate/pkg/errors"
	stringsutil "kidgate/pkg/platform/strings"
)

// minQueryDigits prevents excessively broad matches: below this, nearly every
// phone number in the directory contains the fragment.
const minQueryDigits = 4

// suffixDigits is the tail length used for the last-resort suffix rule, wide
// enough to cover local numbers entered without an area code.
const suffixDigits = 8

// AmbiguousError reports that more than one distinct adult matched. Callers
// must surface a front-desk fallback rather than guess.
type AmbiguousError struct {
	Candidates []ResponsibleAdult
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%d adults match the given contact fragment", len(e.Candidates))
}

// Resolver disambiguates a responsible adult from a partial phone number or a
// national-ID. Pure over the directory port: no side effects, safe to retry.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns exactly one adult or a typed failure.
//
// Matching policy, in priority order over digit-normalized values:
//  1. exact national-ID equality
//  2. exact phone equality
//  3. phone contains the input as a contiguous substring
//  4. last-8-digit suffix equality, when the input has at least 8 digits
//
// The first tier with any hits decides the outcome; multiple distinct adults
// in that tier yield an ambiguous-match error carrying the candidate set.
func (r *Resolver) Resolve(ctx context.Context, query string) (ResponsibleAdult, error) {
	digits := stringsutil.Digits(query)
	if len(digits) < minQueryDigits {
		return ResponsibleAdult{}, dErrors.New(dErrors.CodeInputTooShort,
			fmt.Sprintf("need at least %d digits to search", minQueryDigits))
	}

	candidates, err := r.dir.Candidates(ctx, digits)
	if err != nil {
		return ResponsibleAdult{}, dErrors.Wrap(dErrors.CodeUnavailable, "directory lookup failed", err)
	}

	for _, match := range []func(ResponsibleAdult, string) bool{
		matchNationalID,
		matchPhoneExact,
		matchPhoneSubstring,
		matchPhoneSuffix,
	} {
		hits := distinct(candidates, digits, match)
		switch len(hits) {
		case 0:
			continue
		case 1:
			return hits[0], nil
		default:
			return ResponsibleAdult{}, dErrors.Wrap(dErrors.CodeAmbiguousMatch,
				"contact fragment matches multiple adults", &AmbiguousError{Candidates: hits})
		}
	}

	return ResponsibleAdult{}, dErrors.New(dErrors.CodeNotFound, "no adult matches the given contact fragment")
}

func matchNationalID(a ResponsibleAdult, digits string) bool {
	id := stringsutil.Digits(a.NationalID)
	return id != "" && id == digits
}

func matchPhoneExact(a ResponsibleAdult, digits string) bool {
	for _, p := range normalizedPhones(a) {
		if p == digits {
			return true
		}
	}
	return false
}

func matchPhoneSubstring(a ResponsibleAdult, digits string) bool {
	for _, p := range normalizedPhones(a) {
		if strings.Contains(p, digits) {
			return true
		}
	}
	return false
}

func matchPhoneSuffix(a ResponsibleAdult, digits string) bool {
	if len(digits) < suffixDigits {
		return false
	}
	suffix := digits[len(digits)-suffixDigits:]
	for _, p := range normalizedPhones(a) {
		if len(p) >= suffixDigits && p[len(p)-suffixDigits:] == suffix {
			return true
		}
	}
	return false
}

func normalizedPhones(a ResponsibleAdult) []string {
	phones := make([]string, 0, len(a.PhoneNumbers))
	for _, p := range a.PhoneNumbers {
		phones = append(phones, stringsutil.Digits(p))
	}
	return stringsutil.DedupeAndTrim(phones)
}

// distinct applies the predicate and dedupes by adult ID: the same adult
// reachable through two phone numbers is still one match.
func distinct(candidates []ResponsibleAdult, digits string, match func(ResponsibleAdult, string) bool) []ResponsibleAdult {
	seen := make(map[string]struct{}, len(candidates))
	var hits []ResponsibleAdult
	for _, c := range candidates {
		if !match(c, digits) {
			continue
		}
		if _, ok := seen[c.ID.String()]; ok {
			continue
		}
		seen[c.ID.String()] = struct{}{}
		hits = append(hits, c)
	}
	return hits
}

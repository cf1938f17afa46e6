// Package license classifies declared package licenses against a
// reference database and a project policy.
//
// Classification is pure: [Analyze] consumes a raw SPDX expression plus
// the project's policy and returns an immutable [Analysis]. An absent or
// unparseable license is a first-class outcome, never an error.
package license

import (
	"fmt"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
)

// Category is the commercial-policy classification of a license.
type Category string

const (
	CategoryFriendly     Category = "commercial-friendly"
	CategoryWarning      Category = "commercial-warning"
	CategoryIncompatible Category = "commercial-incompatible"
	CategoryUnlicensed   Category = "unlicensed"
	CategoryUnknown      Category = "unknown"
)

// Severity grades how much attention a license finding deserves.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ProjectType describes the project consuming the dependencies. It
// shifts how copyleft findings are graded.
type ProjectType string

const (
	ProjectCommercial ProjectType = "commercial"
	ProjectOpenSource ProjectType = "open-source"
	ProjectSaaS       ProjectType = "saas"
	ProjectInternal   ProjectType = "internal"
	ProjectPersonal   ProjectType = "personal"
)

// permissive reports whether the project type tolerates
// commercial-warning licenses without restricting commercial use.
func (p ProjectType) permissive() bool {
	switch p {
	case ProjectOpenSource, ProjectInternal, ProjectPersonal:
		return true
	}
	return false
}

// Policy is the license section of the scan configuration. List entries
// are SPDX identifiers, optionally with a trailing wildcard ("GPL-*"
// matches every identifier starting with "GPL-").
type Policy struct {
	Allow              []string `json:"allow,omitempty"`
	Deny               []string `json:"deny,omitempty"`
	Warn               []string `json:"warn,omitempty"`
	WarnOnUnknown      bool     `json:"warn_on_unknown"`
	CheckPatentClauses bool     `json:"check_patent_clauses"`
}

// Analysis is the classification outcome for one package's license.
type Analysis struct {
	Package         string   `json:"package"`
	Version         string   `json:"version"`
	License         string   `json:"license"` // effective SPDX identifier, or the raw expression when unresolvable
	Category        Category `json:"category"`
	Rating          Rating   `json:"rating"`
	CommercialUse   bool     `json:"commercial_use"`
	IsDualLicense   bool     `json:"is_dual_license"`
	HasPatentClause bool     `json:"has_patent_clause"`
	Severity        Severity `json:"severity"`
	Reason          string   `json:"reason,omitempty"`
}

// Analyze classifies a declared license expression for one package.
//
// OR expressions are a genuine choice: each operand is classified and
// the most permissive outcome wins, with the dual-license flag set. AND
// expressions bind all operands simultaneously, so the least permissive
// operand governs. Single identifiers are resolved through the
// reference database and then graded against the policy's
// allow/deny/warn lists and the project type.
func Analyze(pkg, version, expression string, projectType ProjectType, policy Policy) Analysis {
	a := Analysis{Package: pkg, Version: version, License: strings.TrimSpace(expression)}

	if a.License == "" || strings.EqualFold(a.License, "UNLICENSED") {
		a.Category = CategoryUnlicensed
		a.Severity = SeverityCritical
		a.Rating = RatingUnrated
		a.Reason = "no license declared"
		return a
	}

	leaf, dual := classify(a.License)
	a.IsDualLicense = dual
	a.License = leaf.id
	a.Rating = leaf.info.Rating
	a.Category = categoryOf(leaf)
	a.Severity, a.Reason = grade(leaf, a.Category, projectType, policy)

	a.CommercialUse = a.Category == CategoryFriendly ||
		(a.Category == CategoryWarning && projectType.permissive())
	if policy.CheckPatentClauses {
		a.HasPatentClause = leaf.info.HasPatentClause
	}
	return a
}

// leaf is one resolved operand of a license expression.
type leaf struct {
	id    string
	info  Info
	known bool
}

// rank orders legal families by permissiveness. Higher is more
// permissive; unknown ranks lowest so AND expressions containing an
// unknown operand classify as unknown.
func (l leaf) rank() int {
	switch l.info.Family {
	case FamilyPermissive:
		return 3
	case FamilyWeakCopyleft:
		return 2
	case FamilyStrongCopyleft:
		return 1
	}
	return 0
}

// classify resolves an SPDX expression to its effective leaf. The
// second return reports whether the expression offered a choice of
// licenses (top-level OR).
func classify(expr string) (leaf, bool) {
	expr = stripParens(expr)

	if parts := splitOperator(expr, "OR"); len(parts) > 1 {
		return pick(parts, func(a, b leaf) bool { return a.rank() > b.rank() }), true
	}
	if parts := splitOperator(expr, "AND"); len(parts) > 1 {
		return pick(parts, func(a, b leaf) bool { return a.rank() < b.rank() }), false
	}

	// Exception clauses ("Apache-2.0 WITH LLVM-exception") classify by
	// the base license.
	if base, _, found := strings.Cut(expr, " WITH "); found {
		expr = strings.TrimSpace(base)
	}

	// A single token that still carries structure (unbalanced nesting,
	// exotic syntax) is flattened to its leaf identifiers; the most
	// permissive one stands in for the whole.
	if strings.ContainsAny(expr, "() ") {
		if ids, err := spdxexp.ExtractLicenses(expr); err == nil && len(ids) > 0 {
			leaves := make([]leaf, len(ids))
			for i, id := range ids {
				leaves[i], _ = classify(id)
			}
			return best(leaves, func(a, b leaf) bool { return a.rank() > b.rank() }), len(ids) > 1
		}
		return leaf{id: expr, info: Info{Family: FamilyUnknown, Rating: RatingUnrated}}, false
	}

	info, known := Lookup(expr)
	return leaf{id: expr, info: info, known: known}, false
}

// pick classifies every operand and returns the one preferred by less.
func pick(parts []string, less func(a, b leaf) bool) leaf {
	leaves := make([]leaf, len(parts))
	for i, p := range parts {
		leaves[i], _ = classify(p)
	}
	return best(leaves, less)
}

func best(leaves []leaf, less func(a, b leaf) bool) leaf {
	chosen := leaves[0]
	for _, l := range leaves[1:] {
		if less(l, chosen) {
			chosen = l
		}
	}
	return chosen
}

// splitOperator splits expr on a top-level boolean operator, respecting
// parenthesis nesting. Operator matching is case-insensitive.
func splitOperator(expr, op string) []string {
	token := " " + op + " "
	upper := strings.ToUpper(expr)

	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(upper[i:], token) {
				parts = append(parts, strings.TrimSpace(expr[start:i]))
				i += len(token) - 1
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(expr[start:]))
	if len(parts) == 1 {
		return parts
	}
	for i, p := range parts {
		parts[i] = stripParens(p)
	}
	return parts
}

// stripParens removes outer parentheses that wrap the whole expression.
func stripParens(expr string) string {
	expr = strings.TrimSpace(expr)
	for strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		depth := 0
		balanced := true
		inner := expr[1 : len(expr)-1]
		for _, r := range inner {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth < 0 {
				balanced = false
				break
			}
		}
		if !balanced || depth != 0 {
			break
		}
		expr = strings.TrimSpace(inner)
	}
	return expr
}

// categoryOf maps a resolved leaf to its policy category.
func categoryOf(l leaf) Category {
	if !l.known {
		return CategoryUnknown
	}
	switch l.info.Family {
	case FamilyPermissive:
		return CategoryFriendly
	case FamilyWeakCopyleft:
		return CategoryWarning
	case FamilyStrongCopyleft:
		return CategoryIncompatible
	}
	return CategoryUnknown
}

// grade derives the severity of a finding. Explicit policy lists win
// over everything; otherwise severity follows the legal family, relaxed
// for open-source projects and tightened for SaaS ones.
func grade(l leaf, category Category, projectType ProjectType, policy Policy) (Severity, string) {
	switch {
	case matchesList(l.id, policy.Deny):
		return SeverityCritical, fmt.Sprintf("%s is denied by policy", l.id)
	case matchesList(l.id, policy.Allow):
		return SeverityOK, ""
	case matchesList(l.id, policy.Warn):
		return SeverityWarning, fmt.Sprintf("%s is flagged by policy", l.id)
	}

	if category == CategoryUnknown {
		if validSPDX(l.id) {
			if policy.WarnOnUnknown {
				return SeverityWarning, fmt.Sprintf("%s is not in the reference database", l.id)
			}
			return SeverityOK, ""
		}
		if policy.WarnOnUnknown {
			return SeverityWarning, fmt.Sprintf("%q is not a recognized SPDX identifier", l.id)
		}
		return SeverityOK, ""
	}

	if projectType == ProjectSaaS && l.info.NetworkCopyleft {
		return SeverityCritical, fmt.Sprintf("%s extends copyleft to network use", l.id)
	}

	switch l.info.Family {
	case FamilyPermissive:
		return SeverityOK, ""
	case FamilyWeakCopyleft:
		switch projectType {
		case ProjectOpenSource:
			return SeverityOK, ""
		case ProjectInternal, ProjectPersonal:
			return SeverityInfo, fmt.Sprintf("%s is weak copyleft", l.id)
		}
		return SeverityWarning, fmt.Sprintf("%s is weak copyleft", l.id)
	case FamilyStrongCopyleft:
		if projectType == ProjectOpenSource {
			return SeverityOK, ""
		}
		return SeverityCritical, fmt.Sprintf("%s is strong copyleft", l.id)
	}
	return SeverityOK, ""
}

// matchesList reports whether id matches any list entry. A trailing
// "-*" entry matches every identifier sharing the prefix up to and
// including the hyphen, so "GPL-*" matches GPL-3.0-only but not
// LGPL-2.1.
func matchesList(id string, list []string) bool {
	for _, entry := range list {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(entry, "*"); ok {
			if len(id) > len(prefix) && strings.EqualFold(id[:len(prefix)], prefix) {
				return true
			}
			continue
		}
		if strings.EqualFold(id, entry) {
			return true
		}
	}
	return false
}

// validSPDX reports whether id is a valid identifier per the SPDX
// license list, independent of the reference database.
func validSPDX(id string) bool {
	valid, _ := spdxexp.ValidateLicenses([]string{id})
	return valid
}

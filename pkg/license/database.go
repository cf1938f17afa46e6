package license

import "strings"

// Family is the legal family a license belongs to.
type Family string

const (
	FamilyPermissive     Family = "permissive"
	FamilyWeakCopyleft   Family = "weak-copyleft"
	FamilyStrongCopyleft Family = "strong-copyleft"
	FamilyUnknown        Family = "unknown"
)

// Rating is the Blue Oak quality tier of a license. Copyleft licenses
// are outside the Blue Oak list and carry RatingUnrated.
type Rating string

const (
	RatingGold    Rating = "gold"
	RatingSilver  Rating = "silver"
	RatingBronze  Rating = "bronze"
	RatingLead    Rating = "lead"
	RatingUnrated Rating = "unrated"
)

// Info is the reference record for one SPDX identifier.
type Info struct {
	Family          Family
	Rating          Rating
	HasPatentClause bool
	NetworkCopyleft bool // copyleft triggered by network use, not only distribution
}

// database maps SPDX identifiers to their reference records. Legacy
// unsuffixed GPL-family identifiers are kept because registry metadata
// predating SPDX 3.0 still uses them.
var database = map[string]Info{
	// Permissive.
	"MIT":                  {Family: FamilyPermissive, Rating: RatingGold},
	"ISC":                  {Family: FamilyPermissive, Rating: RatingGold},
	"0BSD":                 {Family: FamilyPermissive, Rating: RatingGold},
	"BlueOak-1.0.0":        {Family: FamilyPermissive, Rating: RatingGold, HasPatentClause: true},
	"BSD-2-Clause-Patent":  {Family: FamilyPermissive, Rating: RatingGold, HasPatentClause: true},
	"BSD-2-Clause":         {Family: FamilyPermissive, Rating: RatingSilver},
	"BSD-3-Clause":         {Family: FamilyPermissive, Rating: RatingSilver},
	"Apache-2.0":           {Family: FamilyPermissive, Rating: RatingSilver, HasPatentClause: true},
	"Zlib":                 {Family: FamilyPermissive, Rating: RatingSilver},
	"BSL-1.0":              {Family: FamilyPermissive, Rating: RatingSilver},
	"Unlicense":            {Family: FamilyPermissive, Rating: RatingBronze},
	"CC0-1.0":              {Family: FamilyPermissive, Rating: RatingBronze},
	"Python-2.0":           {Family: FamilyPermissive, Rating: RatingBronze},
	"Artistic-2.0":         {Family: FamilyPermissive, Rating: RatingBronze},
	"PostgreSQL":           {Family: FamilyPermissive, Rating: RatingBronze},
	"BSD-3-Clause-Clear":   {Family: FamilyPermissive, Rating: RatingBronze},
	"UPL-1.0":              {Family: FamilyPermissive, Rating: RatingSilver, HasPatentClause: true},
	"MIT-0":                {Family: FamilyPermissive, Rating: RatingGold},
	"WTFPL":                {Family: FamilyPermissive, Rating: RatingLead},
	"Beerware":             {Family: FamilyPermissive, Rating: RatingLead},

	// Weak copyleft.
	"LGPL-2.0-only":     {Family: FamilyWeakCopyleft, Rating: RatingUnrated},
	"LGPL-2.0-or-later": {Family: FamilyWeakCopyleft, Rating: RatingUnrated},
	"LGPL-2.1":          {Family: FamilyWeakCopyleft, Rating: RatingUnrated},
	"LGPL-2.1-only":     {Family: FamilyWeakCopyleft, Rating: RatingUnrated},
	"LGPL-2.1-or-later": {Family: FamilyWeakCopyleft, Rating: RatingUnrated},
	"LGPL-3.0":          {Family: FamilyWeakCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"LGPL-3.0-only":     {Family: FamilyWeakCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"LGPL-3.0-or-later": {Family: FamilyWeakCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"MPL-2.0":           {Family: FamilyWeakCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"EPL-1.0":           {Family: FamilyWeakCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"EPL-2.0":           {Family: FamilyWeakCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"CDDL-1.0":          {Family: FamilyWeakCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"CDDL-1.1":          {Family: FamilyWeakCopyleft, Rating: RatingUnrated, HasPatentClause: true},

	// Strong copyleft.
	"GPL-2.0":           {Family: FamilyStrongCopyleft, Rating: RatingUnrated},
	"GPL-2.0-only":      {Family: FamilyStrongCopyleft, Rating: RatingUnrated},
	"GPL-2.0-or-later":  {Family: FamilyStrongCopyleft, Rating: RatingUnrated},
	"GPL-3.0":           {Family: FamilyStrongCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"GPL-3.0-only":      {Family: FamilyStrongCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"GPL-3.0-or-later":  {Family: FamilyStrongCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"AGPL-3.0":          {Family: FamilyStrongCopyleft, Rating: RatingUnrated, HasPatentClause: true, NetworkCopyleft: true},
	"AGPL-3.0-only":     {Family: FamilyStrongCopyleft, Rating: RatingUnrated, HasPatentClause: true, NetworkCopyleft: true},
	"AGPL-3.0-or-later": {Family: FamilyStrongCopyleft, Rating: RatingUnrated, HasPatentClause: true, NetworkCopyleft: true},
	"SSPL-1.0":          {Family: FamilyStrongCopyleft, Rating: RatingUnrated, NetworkCopyleft: true},
	"OSL-3.0":           {Family: FamilyStrongCopyleft, Rating: RatingUnrated, HasPatentClause: true, NetworkCopyleft: true},
	"EUPL-1.1":          {Family: FamilyStrongCopyleft, Rating: RatingUnrated, HasPatentClause: true},
	"EUPL-1.2":          {Family: FamilyStrongCopyleft, Rating: RatingUnrated, HasPatentClause: true, NetworkCopyleft: true},
	"CECILL-2.1":        {Family: FamilyStrongCopyleft, Rating: RatingUnrated},
}

// lowercase index for case-insensitive fallback lookups.
var databaseLower = func() map[string]string {
	m := make(map[string]string, len(database))
	for id := range database {
		m[strings.ToLower(id)] = id
	}
	return m
}()

// Lookup resolves an SPDX identifier to its reference record. Matching
// is exact first, then case-insensitive; a trailing "+" (legacy
// or-later marker) is ignored.
func Lookup(id string) (Info, bool) {
	id = strings.TrimSpace(strings.TrimSuffix(id, "+"))
	if info, ok := database[id]; ok {
		return info, true
	}
	if canonical, ok := databaseLower[strings.ToLower(id)]; ok {
		return database[canonical], true
	}
	return Info{Family: FamilyUnknown, Rating: RatingUnrated}, false
}

// Known reports whether the identifier is present in the reference
// database.
func Known(id string) bool {
	_, ok := Lookup(id)
	return ok
}

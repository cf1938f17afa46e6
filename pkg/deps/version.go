package deps

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/depvet/pkg/errors"
)

// ResolveVersion maps a declared version range to a concrete published
// version of the package.
//
// Resolution is intentionally simplified: a range that literally names a
// published version (optionally prefixed with "=" or "v") resolves to
// that version; anything else resolves to the registry's latest tag.
// Real semver range intersection is out of scope, so pinned ranges like
// "^1.2.0" resolve to latest even when latest is a different major.
func ResolveVersion(meta *PackageMetadata, versionRange string) (string, error) {
	if v, ok := exactVersion(meta, versionRange); ok {
		return v, nil
	}

	if meta.Latest == "" {
		return "", errors.New(errors.ErrCodeVersionNotFound, "package %s has no latest version", meta.Name)
	}
	if _, ok := meta.Versions[meta.Latest]; !ok {
		return "", errors.New(errors.ErrCodeVersionNotFound,
			"package %s: latest tag %s is not a published version", meta.Name, meta.Latest)
	}
	return meta.Latest, nil
}

// exactVersion reports whether the range literally names a published
// version. The semver library normalizes cosmetic differences ("v1.2.3",
// "=1.2.3", "1.2") so a pinned manifest entry matches the registry's
// canonical form.
func exactVersion(meta *PackageMetadata, versionRange string) (string, bool) {
	r := strings.TrimSpace(versionRange)
	r = strings.TrimPrefix(r, "=")
	r = strings.TrimSpace(r)
	if r == "" || r == "latest" || r == "*" {
		return "", false
	}

	// Range operators disqualify a literal match outright.
	if strings.ContainsAny(r, "^~<>| ") {
		return "", false
	}

	if _, ok := meta.Versions[r]; ok {
		return r, true
	}

	v, err := semver.NewVersion(r)
	if err != nil {
		return "", false
	}
	if _, ok := meta.Versions[v.String()]; ok {
		return v.String(), true
	}
	return "", false
}

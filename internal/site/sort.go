package site

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	leadingDigitsRe = regexp.MustCompile(`^\d+`)
	folderPrefixRe  = regexp.MustCompile(`^\d+_`)
)

// SortListing orders file names for a folder index: names that both start
// with digits compare by that number, everything else (and numeric ties) by
// locale-aware collation.
func SortListing(names []string) {
	col := collate.New(language.Und)
	sort.SliceStable(names, func(i, j int) bool {
		return compareNames(col, names[i], names[j]) < 0
	})
}

func compareNames(col *collate.Collator, a, b string) int {
	an, bn := leadingDigitsRe.FindString(a), leadingDigitsRe.FindString(b)
	if an != "" && bn != "" {
		if c := compareDigits(an, bn); c != 0 {
			return c
		}
	}
	return col.CompareString(a, b)
}

// compareDigits compares two decimal digit strings by value without
// overflowing on long prefixes.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// FolderTitle turns a folder name into a heading: "2_Locations" becomes
// "Locations", "Side_Quests" becomes "Side Quests".
func FolderTitle(name string) string {
	return strings.ReplaceAll(folderPrefixRe.ReplaceAllString(name, ""), "_", " ")
}

// DisplayName renders a subdirectory name for a listing.
func DisplayName(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

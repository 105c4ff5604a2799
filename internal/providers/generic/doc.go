// Package generic implements providers.Fetcher for HTML manga listing
// sites. Listing pages are walked with colly, story and chapter pages are
// parsed with goquery using configurable selector lists, with heuristic
// fallbacks when every selector misses.
package generic

// Package match ranks catalog search hits against a wanted artist and title.
//
// Both sides of every comparison go through a Normalizer, which lowercases,
// removes noise words such as "remastered" or "deluxe", and drops whitespace
// and punctuation. The normalized strings are compared with Levenshtein
// distance, scaled by the longer length. A candidate's score is the sum of
// its artist and title ratios; lower is better and 0 means both fields
// normalize to the same text.
//
// Everything in this package is pure and safe for concurrent use.
package match

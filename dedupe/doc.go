/*
Package dedupe holds the exact-match index used to decide whether a record has been seen before.

The index is a set of record fingerprints. Each fingerprint is kept for the life
of the index, so a record is reported as new exactly once no matter how many times
its content appears, including across several inputs read one after another.
There is no eviction: unlike a fixed size lookup cache the index can't forget a
record and later let a repeat of it through as new.

Memory grows with the number of distinct records, not the number of records read.
Approximate costs per distinct record, including map overhead:

* strong (SHA-256) fingerprints: ~41 bytes
* fast (xxHash64) fingerprints: ~11 bytes

So 100 million distinct records need roughly 4GB with strong fingerprints and
roughly 1GB with fast fingerprints. Callers that need to bound memory for very
large inputs should choose fast fingerprints, accepting a small chance that two
different records are counted as duplicates.

An index is not safe for concurrent use. Fingerprints may be computed in parallel
but must be presented to one index from a single goroutine.
*/
package dedupe

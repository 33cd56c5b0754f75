// Package hasher provides the streaming checksum used during
// transfer. The reader feeds each block into the digest as it is read,
// so hashing costs no extra pass over the data; the final block
// carries the lowercase hex digest into the catalog.
package hasher

// Package integrity computes and compares SHA-1 content hashes of files.
package integrity

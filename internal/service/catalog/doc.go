// Package catalog prints the versions published in a release feed.
package catalog

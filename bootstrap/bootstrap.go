// Package bootstrap models the stage-0/1/2 loader protocol that a
// browser-hosted loader runs against a polyglot artifact produced by
// this module: recover the file tree from its HTML envelope, locate and
// "compile" the boot module, resolve external references, run the
// configuration bytecode, and invoke the inner init chain.
package bootstrap

import "context"

// Fetcher resolves a typeflag='S' external reference's linkname (a URL)
// to its bytes. Generalizing "fetch a URL" to an injectable function
// lets tests substitute a fake without a network, the same way a WASI
// filesystem layer is driven through an injectable `sys.FS` rather than
// talking to a real filesystem in unit tests.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

package wasiconfig

import "github.com/wahpkg/wah/internal/descriptor"

// Handle is an arena index into an FS's node table. Directory entries and
// OpenFile targets are stored as Handles rather than direct pointers, so
// the tree can't form a reference cycle a garbage collector would need to
// untangle. A Handle is a bare index with no generation counter; FS never
// frees a node (Replace keeps the Handle), so a Handle always names the
// node last stored at it.
type Handle int32

// File is a regular file's byte content.
type File struct {
	Data []byte
}

// Directory maps names to child handles (File or Directory nodes).
type Directory struct {
	Entries map[string]Handle
}

// PreopenDirectory is a directory bound to a WASI preopen path.
type PreopenDirectory struct {
	Path string
	Root Handle
}

// OpenFile is a File handle paired with a read/write cursor, the object
// opcode 11 (path_open) and opcode 12 (OpenFile) produce.
type OpenFile struct {
	File Handle
	Pos  int64
}

// FS is the in-memory root filesystem the evaluator builds: an arena of
// nodes addressed by Handle, so File/Directory/OpenFile values can
// reference each other without being freed while any descriptor still
// points at them.
type FS struct {
	arena descriptor.Table[int32, any]
}

// NewFS returns an empty FS.
func NewFS() *FS {
	return &FS{}
}

// Alloc stores node and returns its Handle.
func (fs *FS) Alloc(node any) Handle {
	return Handle(fs.arena.Insert(node))
}

// Lookup returns the node at h.
func (fs *FS) Lookup(h Handle) (any, bool) {
	return fs.arena.Lookup(int32(h))
}

// Replace overwrites the node at h in place: entries may be replaced
// in-place but never freed while any descriptor refers to them. Replace
// never changes h, so every existing Handle into this
// node keeps resolving to the new content.
func (fs *FS) Replace(h Handle, node any) {
	fs.arena.Delete(int32(h))
	fs.arena.InsertAt(node, int32(h))
}

// Child returns the named child of dir, if present and if dir is
// itself a Directory node.
func (fs *FS) Child(dir Handle, name string) (Handle, bool) {
	n, ok := fs.Lookup(dir)
	if !ok {
		return 0, false
	}
	d, ok := n.(*Directory)
	if !ok {
		return 0, false
	}
	h, ok := d.Entries[name]
	return h, ok
}

// Resolve walks a '/'-separated path from root. Paths are '/'-separated
// and normalized to have no leading slash.
func (fs *FS) Resolve(root Handle, path string) (Handle, bool) {
	path = normalizePath(path)
	if path == "" {
		return root, true
	}
	cur := root
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				next, ok := fs.Child(cur, path[start:i])
				if !ok {
					return 0, false
				}
				cur = next
			}
			start = i + 1
		}
	}
	return cur, true
}

func normalizePath(path string) string {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}

// BuildTree populates fs with a Directory tree matching the given path ->
// data entries (directories are created implicitly from path segments)
// and returns the root Directory's Handle. This is the load-time
// counterpart of whatever File/Directory/PreopenDirectory instructions a
// packed bytecode program would have emitted for the same tree at build
// time; bootstrap uses it to build the root directory from the recovered
// file entries directly (it creates no PreopenDirectory node and does not
// set the Config's fds[3]), rather than requiring every packed
// artifact's bytecode to re-enumerate its own file tree instruction by
// instruction.
func (fs *FS) BuildTree(files map[string][]byte) Handle {
	root := fs.Alloc(&Directory{Entries: map[string]Handle{}})
	for path, data := range files {
		fs.insertFile(root, normalizePath(path), data)
	}
	return root
}

func (fs *FS) insertFile(dir Handle, path string, data []byte) {
	slash := indexByteFS(path, '/')
	if slash < 0 {
		fileHandle := fs.Alloc(&File{Data: data})
		fs.addChild(dir, path, fileHandle)
		return
	}
	name, rest := path[:slash], path[slash+1:]
	child, ok := fs.Child(dir, name)
	if !ok {
		child = fs.Alloc(&Directory{Entries: map[string]Handle{}})
		fs.addChild(dir, name, child)
	}
	fs.insertFile(child, rest, data)
}

func (fs *FS) addChild(dir Handle, name string, child Handle) {
	n, _ := fs.Lookup(dir)
	d := n.(*Directory)
	d.Entries[name] = child
}

func indexByteFS(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

// Package verfs implements the node layer of a content-addressed, versioned
// file system.
//
// Every file and directory is addressed by the CID of its serialized form in
// an append-only block store. Nodes are immutable once observed: mutating
// operations clone the underlying value (copy-on-write) so existing handles
// keep seeing the state they had, and every node records the CIDs of the
// persisted states it descended from, forming a version DAG.
//
// Basic usage:
//
//	bs := verfs.NewMemoryBlockStore()
//
//	// Store some content, then a file node referencing it.
//	contentCid, _ := bs.Put(ctx, verfs.CodecRaw, data)
//	file := verfs.NewFileNode(verfs.NewFile(time.Now(), contentCid))
//	fileCid, _ := file.Store(ctx, bs)
//
//	// Build a directory around it and persist the whole tree.
//	dir := verfs.NewDirectory(time.Now())
//	dir.PutChildCid("notes.txt", fileCid)
//	root := verfs.NewDirNode(dir)
//	rootCid, _ := root.Store(ctx, bs)
//
//	// Load it back; children stay CID references until resolved.
//	node, _ := verfs.LoadNode(ctx, rootCid, bs)
//	if node.IsDir() { ... }
//
// Persisting a directory first persists any children that are still in-memory
// nodes, so their addresses can be embedded in the directory record. Files
// serialize without touching the store beyond their own write.
package verfs

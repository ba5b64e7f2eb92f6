package index

import (
	"bptreeidx/types"
	"encoding/binary"
)

// metadataSize is the on-disk footprint of the header-page record: a
// 20-byte null-padded relation name, a 4-byte key attribute byte offset, a
// 4-byte key datatype tag, and a 4-byte local root page id.
const metadataSize = 20 + 4 + 4 + 4

type metadata struct {
	relationName string
	attrOffset   int32
	keyType      types.KeyType
	rootLocal    uint32
}

func encodeMetadata(m metadata) []byte {
	buf := make([]byte, metadataSize)
	copy(buf[0:20], m.relationName)
	binary.LittleEndian.PutUint32(buf[20:], uint32(m.attrOffset))
	binary.LittleEndian.PutUint32(buf[24:], uint32(m.keyType))
	binary.LittleEndian.PutUint32(buf[28:], m.rootLocal)
	return buf
}

func decodeMetadata(buf []byte) metadata {
	nameEnd := 0
	for nameEnd < 20 && buf[nameEnd] != 0 {
		nameEnd++
	}
	return metadata{
		relationName: string(buf[0:nameEnd]),
		attrOffset:   int32(binary.LittleEndian.Uint32(buf[20:])),
		keyType:      types.KeyType(int32(binary.LittleEndian.Uint32(buf[24:]))),
		rootLocal:    binary.LittleEndian.Uint32(buf[28:]),
	}
}

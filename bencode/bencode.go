// Package bencode implements the bencode serialization format used by
// torrent metainfo files and tracker responses: byte strings, signed
// 64-bit integers, lists and dictionaries with sorted string keys.
package bencode

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which of the four bencode shapes a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindList
	KindDict
)

// DictEntry is one key/value pair of a dictionary, kept in the order the
// decoder saw it so that re-encoding an already-sorted input is
// byte-for-byte stable.
type DictEntry struct {
	Key string
	Val Value
}

// Value is a bencode value: exactly one of Str, Int, List or Dict is
// meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Str  []byte
	Int  int64
	List []Value
	Dict []DictEntry
}

// String builds a byte-string Value.
func String(s []byte) Value { return Value{Kind: KindString, Str: s} }

// Int builds an integer Value.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// List builds a list Value.
func List(items ...Value) Value { return Value{Kind: KindList, List: items} }

// Dict builds a dictionary Value from entries. Entries are sorted by key
// on Encode regardless of the order passed here.
func Dict(entries ...DictEntry) Value { return Value{Kind: KindDict, Dict: entries} }

// Get looks up a key in a dictionary Value. ok is false if v is not a
// dictionary or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindDict {
		return Value{}, false
	}
	for _, e := range v.Dict {
		if e.Key == key {
			return e.Val, true
		}
	}
	return Value{}, false
}

// Equal reports whether two values are structurally identical. Dictionary
// comparison is order-independent (a decoded and a freshly-built dict with
// the same pairs are equal even if insertion order differs).
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return string(v.Str) == string(o.Str)
	case KindInt:
		return v.Int == o.Int
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindDict:
		if len(v.Dict) != len(o.Dict) {
			return false
		}
		am := make(map[string]Value, len(v.Dict))
		for _, e := range v.Dict {
			am[e.Key] = e.Val
		}
		for _, e := range o.Dict {
			av, ok := am[e.Key]
			if !ok || !av.Equal(e.Val) {
				return false
			}
		}
		return true
	}
	return false
}

// GoString renders v the way the decode CLI subcommand does: byte strings
// in double quotes (invalid UTF-8 is replaced lossily), lists in brackets,
// dictionaries in braces with sorted keys, matching the informal JSON-like
// rendering used by every bencode command-line tool in the ecosystem.
func (v Value) GoString() string {
	var b strings.Builder
	v.writeJSON(&b)
	return b.String()
}

func (v Value) writeJSON(b *strings.Builder) {
	switch v.Kind {
	case KindString:
		b.WriteByte('"')
		b.WriteString(strings.ToValidUTF8(string(v.Str), "�"))
		b.WriteByte('"')
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindList:
		b.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeJSON(b)
		}
		b.WriteByte(']')
	case KindDict:
		entries := append([]DictEntry(nil), v.Dict...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		b.WriteByte('{')
		for i, e := range entries {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, "%q:", e.Key)
			e.Val.writeJSON(b)
		}
		b.WriteByte('}')
	}
}

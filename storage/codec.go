package storage

import (
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
)

// maxKeyLength is the longest accepted document key.
const maxKeyLength = 254

var validKey = regexp.MustCompile(`^[a-zA-Z0-9_\-:.@()+,=;$!*'%]+$`)

// ValidKey reports whether key may identify a document.
func ValidKey(key string) bool {
	return len(key) > 0 && len(key) <= maxKeyLength && validKey.MatchString(key)
}

// systemAttributes are kept in columns, not in the stored body.
var systemAttributes = []string{document.KeyAttribute, document.RevAttribute, document.IDAttribute}

// bodyCodec encodes document bodies, optionally zstd-compressed.
type bodyCodec struct {
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

func newBodyCodec(compress bool) (*bodyCodec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create zstd encoder")
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, errors.Wrap(err, "create zstd decoder")
	}
	return &bodyCodec{compress: compress, enc: enc, dec: dec}, nil
}

// encode strips system attributes and serializes the rest.
func (c *bodyCodec) encode(doc document.Value) ([]byte, bool, error) {
	data, err := json.Marshal(doc.Without(systemAttributes...))
	if err != nil {
		return nil, false, errors.Wrap(err, "encode document body")
	}
	if !c.compress {
		return data, false, nil
	}
	return c.enc.EncodeAll(data, make([]byte, 0, len(data))), true, nil
}

func (c *bodyCodec) decode(data []byte, compressed bool) (document.Value, error) {
	if compressed {
		raw, err := c.dec.DecodeAll(data, nil)
		if err != nil {
			return document.None(), errors.Wrap(err, "decompress document body")
		}
		data = raw
	}
	return document.Parse(data)
}

func (c *bodyCodec) close() {
	c.enc.Close()
	c.dec.Close()
}

// revisionGenerator stamps revisions from a content hash and a process-wide
// tick, so two writes of identical content still get distinct revisions.
type revisionGenerator struct {
	tick atomic.Uint64
	seed uint64
}

func newRevisionGenerator() *revisionGenerator {
	return &revisionGenerator{seed: uint64(time.Now().UnixNano())}
}

func (g *revisionGenerator) next(collection, key string, body []byte) string {
	h := blake3.New()
	h.Write([]byte(collection))
	h.Write([]byte{0})
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write(body)
	h.Write([]byte(strconv.FormatUint(g.seed+g.tick.Add(1), 36)))
	sum := h.Sum(nil)
	return "_" + hex.EncodeToString(sum[:8])
}

// withSystemAttributes returns body with _key, _id and _rev set.
func withSystemAttributes(body document.Value, collection, key, rev string) document.Value {
	out := body.Without(systemAttributes...)
	out.Set(document.KeyAttribute, document.String(key))
	out.Set(document.IDAttribute, document.String(collection+"/"+key))
	out.Set(document.RevAttribute, document.String(rev))
	return out
}

package geopackage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/jobrunner/gdbee/internal/domain"
)

// gpkgMagic starts every GeoPackage binary geometry.
var gpkgMagic = []byte("GP")

const (
	gpkgHeaderSize = 8
	flagByteOrder  = 0x01 // little endian header values
	flagEmpty      = 0x10 // empty geometry
)

// envelopeSizes maps the envelope contents indicator to its byte size.
var envelopeSizes = map[byte]int{
	0: 0,
	1: 32, // minx, maxx, miny, maxy
	2: 48, // + minz, maxz
	3: 48, // + minm, maxm
	4: 64, // + minz, maxz, minm, maxm
}

var errInvalidHeader = errors.New("invalid GeoPackage geometry header")

// DecodeGeometry decodes a GeoPackage binary geometry, a SpatiaLite BLOB geometry or a
// plain WKB blob. An empty blob and an empty geometry decode to nil.
func DecodeGeometry(data []byte) (*domain.Geometry, error) {
	switch {
	case len(data) == 0:
		return nil, nil
	case bytes.HasPrefix(data, gpkgMagic):
		return decodeGPKG(data)
	case isSpatiaLite(data):
		return decodeSpatiaLite(data)
	default:
		return decodeWKB(data, 0, nil)
	}
}

func decodeGPKG(data []byte) (*domain.Geometry, error) {
	if len(data) < gpkgHeaderSize {
		return nil, errInvalidHeader
	}

	flags := data[3]
	var order binary.ByteOrder = binary.BigEndian
	if flags&flagByteOrder != 0 {
		order = binary.LittleEndian
	}

	envSize, ok := envelopeSizes[(flags>>1)&0x07]
	if !ok {
		return nil, fmt.Errorf("%w: envelope indicator %d", errInvalidHeader, (flags>>1)&0x07)
	}
	offset := gpkgHeaderSize + envSize
	if len(data) < offset {
		return nil, fmt.Errorf("%w: %d bytes", errInvalidHeader, len(data))
	}

	srid := int(int32(order.Uint32(data[4:8])))

	var env *domain.Envelope
	if envSize > 0 {
		at := func(i int) float64 {
			start := gpkgHeaderSize + i*8
			return math.Float64frombits(order.Uint64(data[start : start+8]))
		}
		env = &domain.Envelope{MinX: at(0), MaxX: at(1), MinY: at(2), MaxY: at(3)}
	}

	if flags&flagEmpty != 0 {
		return nil, nil
	}
	return decodeWKB(data[offset:], srid, env)
}

func decodeWKB(data []byte, srid int, env *domain.Envelope) (*domain.Geometry, error) {
	geom, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding WKB: %w", err)
	}

	text := wkt.MarshalString(geom)
	return &domain.Geometry{
		Type:     domain.GeometryTypeFromWKT(text),
		WKT:      text,
		SRID:     srid,
		Envelope: env,
	}, nil
}

// geometryValue converts a scanned geometry cell into a geometry.
// Text values are taken as WKT, for example the result of AsText().
func geometryValue(v interface{}) (*domain.Geometry, error) {
	switch val := v.(type) {
	case []byte:
		return DecodeGeometry(val)
	case string:
		if val == "" {
			return nil, nil
		}
		return &domain.Geometry{Type: domain.GeometryTypeFromWKT(val), WKT: val}, nil
	default:
		return nil, nil
	}
}

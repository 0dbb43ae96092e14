package geopackage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/jobrunner/gdbee/internal/domain"
)

// SpatiaLite BLOB geometry layout: start byte, byte order, SRID, MBR, MBR end marker,
// class type, geometry body, end byte. Collection items start with an entity marker.
const (
	slStart        = 0x00
	slMBREnd       = 0x7C
	slEnd          = 0xFE
	slEntity       = 0x69
	slHeaderSize   = 43 // start + order + srid + 4 doubles + mbr end + class type
	slMinSize      = slHeaderSize + 1
	slOrderLittle  = 0x01
	slCompressed   = 1000000
	slMaxDimension = 3000
)

var errInvalidSpatiaLite = errors.New("invalid SpatiaLite geometry")

// isSpatiaLite reports whether data is framed like a SpatiaLite BLOB geometry.
func isSpatiaLite(data []byte) bool {
	return len(data) >= slMinSize &&
		data[0] == slStart &&
		data[38] == slMBREnd &&
		data[len(data)-1] == slEnd
}

// decodeSpatiaLite rewrites a SpatiaLite BLOB geometry as WKB and decodes it.
func decodeSpatiaLite(data []byte) (*domain.Geometry, error) {
	var order binary.ByteOrder = binary.BigEndian
	if data[1] == slOrderLittle {
		order = binary.LittleEndian
	}

	srid := int(int32(order.Uint32(data[2:6])))
	at := func(i int) float64 {
		start := 6 + i*8
		return math.Float64frombits(order.Uint64(data[start : start+8]))
	}
	env := &domain.Envelope{MinX: at(0), MinY: at(1), MaxX: at(2), MaxY: at(3)}

	c := &slConverter{data: data[39 : len(data)-1], order: order, orderByte: data[1]}
	c.out = append(c.out, data[1])
	if err := c.geometry(); err != nil {
		return nil, err
	}
	if c.pos != len(c.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", errInvalidSpatiaLite, len(c.data)-c.pos)
	}
	return decodeWKB(c.out, srid, env)
}

// slConverter copies a SpatiaLite geometry body into WKB, replacing entity markers
// with the byte order flag WKB expects in front of every collection item.
type slConverter struct {
	data      []byte
	pos       int
	order     binary.ByteOrder
	orderByte byte
	out       []byte
}

func (c *slConverter) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.data)-c.pos {
		return nil, fmt.Errorf("%w: truncated at byte %d", errInvalidSpatiaLite, c.pos)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *slConverter) copyN(n int) error {
	b, err := c.take(n)
	if err != nil {
		return err
	}
	c.out = append(c.out, b...)
	return nil
}

func (c *slConverter) count() (int, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	c.out = append(c.out, b...)
	return int(c.order.Uint32(b)), nil
}

// geometry copies a class type and its body.
func (c *slConverter) geometry() error {
	b, err := c.take(4)
	if err != nil {
		return err
	}
	c.out = append(c.out, b...)

	class := int(c.order.Uint32(b))
	if class >= slCompressed {
		return fmt.Errorf("%w: compressed class %d is not supported", errInvalidSpatiaLite, class)
	}
	if class > slMaxDimension+7 {
		return fmt.Errorf("%w: class %d", errInvalidSpatiaLite, class)
	}
	pointSize := 8 * [4]int{2, 3, 3, 4}[class/1000]

	switch class % 1000 {
	case 1: // point
		return c.copyN(pointSize)
	case 2: // linestring
		return c.points(pointSize)
	case 3: // polygon
		rings, err := c.count()
		if err != nil {
			return err
		}
		for i := 0; i < rings; i++ {
			if err := c.points(pointSize); err != nil {
				return err
			}
		}
		return nil
	case 4, 5, 6, 7: // multi geometries and collections
		items, err := c.count()
		if err != nil {
			return err
		}
		for i := 0; i < items; i++ {
			marker, err := c.take(1)
			if err != nil {
				return err
			}
			if marker[0] != slEntity {
				return fmt.Errorf("%w: missing entity marker at byte %d", errInvalidSpatiaLite, c.pos-1)
			}
			c.out = append(c.out, c.orderByte)
			if err := c.geometry(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: class %d", errInvalidSpatiaLite, class)
	}
}

func (c *slConverter) points(pointSize int) error {
	n, err := c.count()
	if err != nil {
		return err
	}
	if n > (len(c.data)-c.pos)/pointSize {
		return fmt.Errorf("%w: %d points exceed the blob", errInvalidSpatiaLite, n)
	}
	return c.copyN(n * pointSize)
}

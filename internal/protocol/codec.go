package protocol

import (
	"bufio"
	"log/slog"
	"strconv"
	"strings"

	"stagepilot/internal/logging"
	"stagepilot/internal/model"
)

// Record type tags, the first tab-separated field of every response line.
const (
	recordRegion    = "REGION"
	recordMarker    = "MARKER"
	recordTransport = "TRANSPORT"
	recordTempo     = "TEMPO"
	recordExtState  = "PROJEXTSTATE"
)

// Transport is the decoded TRANSPORT record.
type Transport struct {
	Playing  bool
	Position float64
}

// Tempo is the decoded TEMPO record.
type Tempo struct {
	BPM           float64
	TimeSignature model.TimeSignature
}

// ExtState is one decoded PROJEXTSTATE record.
type ExtState struct {
	Section string
	Key     string
	Value   string
}

// Records aggregates every typed record recovered from one response body.
// Pointer fields are nil when the response carried no such record.
type Records struct {
	Regions   []model.Region
	Markers   []model.Marker
	Transport *Transport
	Tempo     *Tempo
	ExtStates []ExtState
}

// Codec decodes response bodies and logs per-line problems without failing.
type Codec struct {
	logger *slog.Logger
}

// NewCodec returns a codec. A nil logger silences decode warnings.
func NewCodec(logger *slog.Logger) *Codec {
	return &Codec{logger: logging.NewComponentLogger(logger, "protocol")}
}

// Decode parses a raw response body. A body with zero valid lines yields an
// empty Records value, not an error.
func (c *Codec) Decode(raw string) Records {
	var out Records

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		switch fields[0] {
		case recordRegion:
			if region, ok := c.decodeRegion(fields); ok {
				out.Regions = append(out.Regions, region)
			}
		case recordMarker:
			if marker, ok := c.decodeMarker(fields); ok {
				out.Markers = append(out.Markers, marker)
			}
		case recordTransport:
			if transport, ok := c.decodeTransport(fields); ok {
				out.Transport = &transport
			}
		case recordTempo:
			if tempo, ok := c.decodeTempo(fields); ok {
				out.Tempo = &tempo
			}
		case recordExtState:
			if state, ok := decodeExtState(fields); ok {
				out.ExtStates = append(out.ExtStates, state)
			}
		default:
			c.logger.Debug("skipping unknown record type", logging.String("record", fields[0]))
		}
	}

	return out
}

// REGION\t<id>\t<name>\t<start>\t<end>\t<color?>
func (c *Codec) decodeRegion(fields []string) (model.Region, bool) {
	if len(fields) < 5 {
		c.warnMalformed(recordRegion, fields)
		return model.Region{}, false
	}
	region := model.Region{
		ID:    fields[1],
		Name:  fields[2],
		Start: c.parseFloat(recordRegion, "start", fields[3]),
		End:   c.parseFloat(recordRegion, "end", fields[4]),
	}
	if len(fields) > 5 {
		region.Color = fields[5]
	}
	if region.End <= region.Start {
		c.logger.Warn("dropping region with non-positive length",
			logging.String(logging.FieldRegionID, region.ID),
			logging.Float64("start", region.Start),
			logging.Float64("end", region.End),
		)
		return model.Region{}, false
	}
	return region, true
}

// MARKER\t<id>\t<name>\t<position>\t<color?>
func (c *Codec) decodeMarker(fields []string) (model.Marker, bool) {
	if len(fields) < 4 {
		c.warnMalformed(recordMarker, fields)
		return model.Marker{}, false
	}
	marker := model.Marker{
		ID:       fields[1],
		Name:     fields[2],
		Position: c.parseFloat(recordMarker, "position", fields[3]),
	}
	if len(fields) > 4 {
		marker.Color = fields[4]
	}
	return marker, true
}

// TRANSPORT\t<playing:0|1>\t<position>
func (c *Codec) decodeTransport(fields []string) (Transport, bool) {
	if len(fields) < 3 {
		c.warnMalformed(recordTransport, fields)
		return Transport{}, false
	}
	return Transport{
		Playing:  fields[1] == "1",
		Position: c.parseFloat(recordTransport, "position", fields[2]),
	}, true
}

// TEMPO\t<bpm>\t<numerator>\t<denominator>
func (c *Codec) decodeTempo(fields []string) (Tempo, bool) {
	if len(fields) < 4 {
		c.warnMalformed(recordTempo, fields)
		return Tempo{}, false
	}
	return Tempo{
		BPM: c.parseFloat(recordTempo, "bpm", fields[1]),
		TimeSignature: model.TimeSignature{
			Numerator:   c.parseInt(recordTempo, "numerator", fields[2]),
			Denominator: c.parseInt(recordTempo, "denominator", fields[3]),
		},
	}, true
}

// PROJEXTSTATE\t<section>\t<key>\t<value>
func decodeExtState(fields []string) (ExtState, bool) {
	if len(fields) < 4 {
		return ExtState{}, false
	}
	// Values may themselves contain tabs when REAPER round-trips JSON blobs;
	// everything past the key belongs to the value.
	return ExtState{
		Section: fields[1],
		Key:     fields[2],
		Value:   strings.Join(fields[3:], "\t"),
	}, true
}

// parseFloat falls back to 0 on bad input. Decode never fails on a numeric
// field; the warning is the only trace.
func (c *Codec) parseFloat(record, field, value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		c.logger.Warn("numeric field failed to parse, using 0",
			logging.String("record", record),
			logging.String("field", field),
			logging.String("value", value),
		)
		return 0
	}
	return parsed
}

func (c *Codec) parseInt(record, field, value string) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		c.logger.Warn("numeric field failed to parse, using 0",
			logging.String("record", record),
			logging.String("field", field),
			logging.String("value", value),
		)
		return 0
	}
	return parsed
}

func (c *Codec) warnMalformed(record string, fields []string) {
	c.logger.Warn("skipping malformed record",
		logging.String("record", record),
		logging.Int("fields", len(fields)),
	)
}

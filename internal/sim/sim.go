// Package sim implements a software stand-in for a STAR-class
// pipetting module.
//
// Ownership boundary: the simulator owns its fake channel bank and
// nothing else. It speaks the same line discipline as the instrument
// so the full client stack, transport included, runs against it
// unchanged.
package sim

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const headerLen = 10

// Instrument simulates the pipetting module firmware. It parses each
// command just enough to keep plausible tip state and answers with
// well-formed responses.
type Instrument struct {
	mu       sync.Mutex
	log      zerolog.Logger
	channels int
	tips     []bool
	volumes  []int
}

func New(channels int, log zerolog.Logger) *Instrument {
	return &Instrument{
		log:      log,
		channels: channels,
		tips:     make([]bool, channels),
		volumes:  make([]int, channels),
	}
}

// Respond produces the response line for one command line. Unknown or
// unparsable commands get the firmware's generic command error.
func (i *Instrument) Respond(cmd string) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(cmd) < headerLen || cmd[4:6] != "id" {
		i.log.Warn().Str("cmd", cmd).Msg("unparsable command")
		return cmd + "er03"
	}
	header := cmd[:headerLen]
	code := cmd[2:4]
	i.log.Debug().Str("cmd", code).Str("id", cmd[6:headerLen]).Msg("command")

	switch code {
	case "TT":
		return header + "er00"
	case "TP":
		return header + i.pickUp(cmd)
	case "TR":
		return header + i.discard(cmd)
	case "AS", "DS":
		return header + i.transfer(cmd)
	case "RT":
		return header + i.presence()
	default:
		return header + "er02"
	}
}

func (i *Instrument) pickUp(cmd string) string {
	mask := parseMask(cmd, i.channels)
	codes := make([]string, i.channels)
	for ch := range codes {
		switch {
		case !mask[ch]:
			codes[ch] = "00"
		case i.tips[ch]:
			// Tip already seated, the pickup jams.
			codes[ch] = "75"
		default:
			i.tips[ch] = true
			codes[ch] = "00"
		}
	}
	return "er" + strings.Join(codes, "/")
}

func (i *Instrument) discard(cmd string) string {
	mask := parseMask(cmd, i.channels)
	codes := make([]string, i.channels)
	kz := make([]string, i.channels)
	vz := make([]string, i.channels)
	for ch := range codes {
		codes[ch] = "00"
		if mask[ch] {
			i.tips[ch] = false
			i.volumes[ch] = 0
		}
		kz[ch] = boolToken(i.tips[ch])
		vz[ch] = fmt.Sprintf("%d", i.volumes[ch])
	}
	return "er" + strings.Join(codes, "/") +
		"kz" + strings.Join(kz, " ") +
		"vz" + strings.Join(vz, " ")
}

func (i *Instrument) transfer(cmd string) string {
	mask := parseMask(cmd, i.channels)
	codes := make([]string, i.channels)
	for ch := range codes {
		if mask[ch] && !i.tips[ch] {
			codes[ch] = "76"
			continue
		}
		codes[ch] = "00"
	}
	return "er" + strings.Join(codes, "/")
}

func (i *Instrument) presence() string {
	rt := make([]string, i.channels)
	for ch, has := range i.tips {
		rt[ch] = boolToken(has)
	}
	return "rt" + strings.Join(rt, " ")
}

func boolToken(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// parseMask pulls the tm field out of a command body. A missing or
// short mask leaves the remaining slots inactive.
func parseMask(cmd string, channels int) []bool {
	mask := make([]bool, channels)
	body := cmd[headerLen:]
	for _, field := range strings.Split(body, "&") {
		if !strings.HasPrefix(field, "tm") {
			continue
		}
		for ch, tok := range strings.Fields(field[2:]) {
			if ch >= channels {
				break
			}
			mask[ch] = tok != "0"
		}
		break
	}
	return mask
}

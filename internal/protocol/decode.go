package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const headerLen = 10 // <module:2><cmd:2>"id"<seq:4>

// Response is one parsed device response.
type Response struct {
	Module string
	Code   string
	ID     int
	// ErrorCodes holds one two-digit code per channel slot, "00" = ok.
	// Empty for responses without an "er" field.
	ErrorCodes []string
	// Sensors holds raw integer readings per slot, keyed by field tag
	// (kz, vz, rt). Only meaningful for operations that populate them.
	Sensors map[string][]int
	Raw     string
}

// DecodeResponse parses a raw response line. The caller still has to
// correlate Response.ID against the command it sent.
func DecodeResponse(raw string) (*Response, error) {
	if len(raw) < headerLen {
		return nil, fmt.Errorf("%w: short response %q", ErrMalformedResponse, raw)
	}
	if raw[4:6] != "id" {
		return nil, fmt.Errorf("%w: missing id marker in %q", ErrMalformedResponse, raw)
	}
	id, err := strconv.Atoi(raw[6:headerLen])
	if err != nil || id < 0 {
		return nil, fmt.Errorf("%w: bad sequence in %q", ErrMalformedResponse, raw)
	}

	resp := &Response{
		Module:  raw[0:2],
		Code:    raw[2:4],
		ID:      id,
		Sensors: make(map[string][]int),
		Raw:     raw,
	}

	body := raw[headerLen:]
	for len(body) > 0 {
		if len(body) < 2 || !isTag(body[0]) || !isTag(body[1]) {
			return nil, fmt.Errorf("%w: stray content %q", ErrMalformedResponse, body)
		}
		tag := body[:2]
		body = body[2:]
		end := 0
		for end < len(body) && !isTag(body[end]) {
			end++
		}
		value := body[:end]
		body = body[end:]

		if tag == "er" {
			codes, err := parseErrorCodes(value)
			if err != nil {
				return nil, err
			}
			resp.ErrorCodes = codes
			continue
		}
		readings, err := parseSensorValues(tag, value)
		if err != nil {
			return nil, err
		}
		resp.Sensors[tag] = readings
	}
	return resp, nil
}

func isTag(c byte) bool { return c >= 'a' && c <= 'z' }

func parseErrorCodes(value string) ([]string, error) {
	codes := strings.Split(value, "/")
	for _, code := range codes {
		if len(code) != 2 || !isDigits(code) {
			return nil, fmt.Errorf("%w: error code %q", ErrMalformedResponse, code)
		}
	}
	return codes, nil
}

func parseSensorValues(tag, value string) ([]int, error) {
	fields := strings.Fields(value)
	readings := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s reading %q", ErrMalformedResponse, tag, f)
		}
		readings = append(readings, n)
	}
	return readings, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Matches checks the response echo against the sent command.
func (r *Response) Matches(module, code string, id int) bool {
	return r.Module == module && r.Code == code && r.ID == id%10000
}

// ChannelOK expands the error field into one success flag per active
// channel, in mask order.
func (r *Response) ChannelOK(mask []bool) ([]bool, error) {
	ok := make([]bool, 0, len(mask))
	for slot, active := range mask {
		if !active {
			continue
		}
		if slot >= len(r.ErrorCodes) {
			return nil, fmt.Errorf("%w: %d error codes for slot %d", ErrMalformedResponse, len(r.ErrorCodes), slot+1)
		}
		ok = append(ok, r.ErrorCodes[slot] == "00")
	}
	return ok, nil
}

// Failures aggregates every failing active channel into DeviceErrors.
// A nil return means all active channels succeeded.
func (r *Response) Failures(mask []bool) []DeviceError {
	var failures []DeviceError
	for slot, active := range mask {
		if !active || slot >= len(r.ErrorCodes) {
			continue
		}
		if code := r.ErrorCodes[slot]; code != "00" {
			failures = append(failures, DeviceError{Channel: slot + 1, Code: code})
		}
	}
	return failures
}

// SensorBools reads a sensor array as per-slot booleans (non-zero = true).
func (r *Response) SensorBools(tag string) []bool {
	readings, ok := r.Sensors[tag]
	if !ok {
		return nil
	}
	out := make([]bool, len(readings))
	for i, v := range readings {
		out[i] = v != 0
	}
	return out
}

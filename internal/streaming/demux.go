package streaming

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrTruncated reports a transport that closed before the [DONE] sentinel.
// That is a failure, never a silent success.
var ErrTruncated = errors.New("stream closed before [DONE]")

// Demuxer reconstructs the logical substreams from the multiplexed wire
// format. It buffers input internally, so a frame split across two physical
// reads is reassembled before parsing.
type Demuxer struct {
	r    *bufio.Reader
	done bool
}

func NewDemuxer(r io.Reader) *Demuxer {
	return &Demuxer{r: bufio.NewReader(r)}
}

// Next returns the next decoded frame. After the terminator frame has been
// returned once, Next reports io.EOF.
func (d *Demuxer) Next() (Frame, error) {
	if d.done {
		return Frame{}, io.EOF
	}
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Frame{}, ErrTruncated
			}
			return Frame{}, fmt.Errorf("read frame: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, tagData):
			body := strings.TrimSpace(line[len(tagData):])
			if body == doneSentinel {
				d.done = true
				return Frame{Kind: FrameDone}, nil
			}
			return parseDataFrame(body)
		case strings.HasPrefix(line, tagReason):
			body := strings.TrimSpace(line[len(tagReason):])
			var p reasoningPayload
			if err := json.Unmarshal([]byte(body), &p); err != nil {
				return Frame{}, fmt.Errorf("decode reason frame: %w", err)
			}
			return Frame{Kind: FrameReasoning, ReasoningText: p.ReasoningText}, nil
		case strings.HasPrefix(line, tagScore):
			body := strings.TrimSpace(line[len(tagScore):])
			score, err := strconv.ParseFloat(body, 64)
			if err != nil {
				return Frame{}, fmt.Errorf("decode score frame: %w", err)
			}
			return Frame{Kind: FrameScore, Score: score}, nil
		default:
			// Unknown channel tags are skipped so newer servers stay
			// readable by older consumers.
			continue
		}
	}
}

func parseDataFrame(body string) (Frame, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return Frame{}, fmt.Errorf("decode data frame: %w", err)
	}
	text, _ := payload["text"].(string)
	delete(payload, "text")
	f := Frame{Kind: FrameText, Text: text}
	if len(payload) > 0 {
		f.Extra = payload
	}
	return f, nil
}

// Result is a fully demultiplexed turn.
type Result struct {
	Text      string
	Reasoning string
	Score     float64
	Extras    []map[string]any
}

// Collect drains the stream until the terminator and reassembles the three
// logical substreams. The embedded ":::<score>" suffix is split out of the
// visible text; an explicit score frame takes precedence over it.
func Collect(d *Demuxer) (Result, error) {
	res := Result{Score: ScoreUnknown}
	var text strings.Builder
	var reasoning strings.Builder
	scoreFromFrame := false
	for {
		f, err := d.Next()
		if err != nil {
			return res, err
		}
		switch f.Kind {
		case FrameText:
			text.WriteString(f.Text)
			if len(f.Extra) > 0 {
				res.Extras = append(res.Extras, f.Extra)
			}
		case FrameReasoning:
			reasoning.WriteString(f.ReasoningText)
		case FrameScore:
			res.Score = f.Score
			scoreFromFrame = true
		case FrameDone:
			body, embedded := SplitConfidence(text.String())
			res.Text = body
			res.Reasoning = reasoning.String()
			if !scoreFromFrame {
				res.Score = embedded
			}
			return res, nil
		}
	}
}

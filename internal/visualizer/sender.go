package visualizer

import (
	"context"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/dispatch"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/mapper"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/wiz"
)

// LightSender adapts a bulb client to the dispatch pipeline. Color frames
// use the fire-and-forget path; awaiting an acknowledgement per frame
// would stall the stream.
type LightSender struct {
	light *wiz.Light
}

// NewLightSender wraps a bulb client.
func NewLightSender(light *wiz.Light) *LightSender {
	return &LightSender{light: light}
}

func (s *LightSender) Addr() string { return s.light.Addr() }

func (s *LightSender) SetColor(_ context.Context, cmd mapper.Command) error {
	return s.light.SetColorNoWait(cmd.R, cmd.G, cmd.B, cmd.Brightness)
}

var _ dispatch.Sender = (*LightSender)(nil)

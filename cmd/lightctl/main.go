// Command lightctl is a small CLI for poking WiZ bulbs directly:
// discovery, power, color, and pilot status.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/version"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/wiz"
)

const usage = `usage: lightctl <command> [flags]

commands:
  discover            broadcast and list responding lights
  status  -addr IP    show a light's pilot state
  on      -addr IP    turn a light on
  off     -addr IP    turn a light off
  color   -addr IP -r N -g N -b N [-brightness N]
                      set a light's color (channels 0-255)
  version             print version

Omitting -addr targets the first discovered light.
`

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "discover":
		err = runDiscover(ctx)
	case "status":
		err = runStatus(ctx, os.Args[2:])
	case "on":
		err = runPower(ctx, os.Args[2:], true)
	case "off":
		err = runPower(ctx, os.Args[2:], false)
	case "color":
		err = runColor(ctx, os.Args[2:])
	case "version":
		fmt.Printf("lightctl %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("lightctl %s: %v", os.Args[1], err)
	}
}

func runDiscover(ctx context.Context) error {
	found, err := wiz.Discover(ctx, wiz.DiscoverConfig{})
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("no lights found")
		return nil
	}
	for _, d := range found {
		state := "off"
		if d.Pilot.State {
			state = "on"
		}
		fmt.Printf("%-15s %s dimming=%d rgb=(%d,%d,%d)\n",
			d.Addr, state, d.Pilot.Dimming, d.Pilot.R, d.Pilot.G, d.Pilot.B)
	}
	return nil
}

// targetLight resolves -addr, falling back to the first discovered light.
func targetLight(ctx context.Context, addr string) (*wiz.Light, error) {
	if addr == "" {
		var err error
		addr, err = wiz.FirstLightAddr(ctx, wiz.DiscoverConfig{})
		if err != nil {
			return nil, err
		}
		log.Printf("using discovered light %s", addr)
	}
	return wiz.NewLight(wiz.Config{Addr: addr}), nil
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "", "light address")
	fs.Parse(args)

	light, err := targetLight(ctx, *addr)
	if err != nil {
		return err
	}
	defer light.Close()

	pilot, err := light.GetPilot(ctx)
	if err != nil {
		return err
	}
	state := "off"
	if pilot.State {
		state = "on"
	}
	fmt.Printf("%s: %s dimming=%d rgb=(%d,%d,%d) scene=%d rssi=%d\n",
		light.Addr(), state, pilot.Dimming, pilot.R, pilot.G, pilot.B, pilot.SceneID, pilot.RSSI)
	return nil
}

func runPower(ctx context.Context, args []string, on bool) error {
	fs := flag.NewFlagSet("power", flag.ExitOnError)
	addr := fs.String("addr", "", "light address")
	fs.Parse(args)

	light, err := targetLight(ctx, *addr)
	if err != nil {
		return err
	}
	defer light.Close()

	if err := light.SetState(ctx, on); err != nil {
		return err
	}
	verb := "off"
	if on {
		verb = "on"
	}
	fmt.Printf("%s turned %s\n", light.Addr(), verb)
	return nil
}

func runColor(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("color", flag.ExitOnError)
	addr := fs.String("addr", "", "light address")
	r := fs.Int("r", 0, "red channel 0-255")
	g := fs.Int("g", 0, "green channel 0-255")
	b := fs.Int("b", 0, "blue channel 0-255")
	brightness := fs.Int("brightness", 255, "brightness 0-255")
	fs.Parse(args)

	light, err := targetLight(ctx, *addr)
	if err != nil {
		return err
	}
	defer light.Close()

	if err := light.SetPilot(ctx, *r, *g, *b, wiz.ScaleDimming(*brightness)); err != nil {
		return err
	}
	fmt.Printf("%s set to rgb=(%d,%d,%d) brightness=%d\n", light.Addr(), *r, *g, *b, *brightness)
	return nil
}

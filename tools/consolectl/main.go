// Command consolectl is an operator console for a running stellarcored
// instance: a REPL over its admin HTTP shim, not a player client.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var ServerURL = "http://localhost:8088"

func main() {
	if url := os.Getenv("STELLARCTL_SERVER"); url != "" {
		ServerURL = url
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("stellarcore admin console")
	fmt.Printf("target: %s\n", ServerURL)
	fmt.Println("commands: status, bodies, entities, aois, settings [get|set <field> <value>], freeze, unfreeze, speed <x>, save, estop, help, quit")

	for {
		fmt.Print("consolectl> ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)
		parts := strings.Fields(text)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "status":
			doStatus()
		case "bodies":
			doBodies()
		case "entities":
			doEntities()
		case "aois":
			doAOIs()
		case "settings":
			doSettings(parts[1:])
		case "freeze":
			doFrozen(true)
		case "unfreeze":
			doFrozen(false)
		case "speed":
			if len(parts) < 2 {
				fmt.Println("usage: speed <multiplier>")
				continue
			}
			doSimSpeed(parts[1])
		case "save":
			doSave()
		case "estop":
			doEmergencyStop()
		case "help":
			printHelp()
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command, type 'help' for options")
		}
	}
}

func printHelp() {
	fmt.Println("  status                     - tick counters and overrun state")
	fmt.Println("  bodies                     - list celestial bodies")
	fmt.Println("  entities                   - list connected entities")
	fmt.Println("  aois                       - list AOI zones and load")
	fmt.Println("  settings                   - show current settings")
	fmt.Println("  settings set <field> <val> - queue a settings mutation")
	fmt.Println("  freeze / unfreeze          - pause or resume celestial advance")
	fmt.Println("  speed <x>                  - set sim_speed multiplier")
	fmt.Println("  save                       - force an immediate celestial snapshot")
	fmt.Println("  estop                      - freeze the simulation immediately")
	fmt.Println("  quit                       - disconnect")
}

type statusResponse struct {
	Tick             uint64
	FramesProcessed  int
	MutationsApplied int
	SnapshotsSent    int
	SanityAuditsSent int
	PeersTimedOut    int
	LastDtSeconds    float64
	OverranBudget    bool
}

func doStatus() {
	body, err := getJSON("/api/status")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	var s statusResponse
	if err := json.Unmarshal(body, &s); err != nil {
		fmt.Printf("protocol error: %v\n", err)
		return
	}
	fmt.Printf("tick %s | dt %.4fs%s | frames %d | mutations %d | snapshots %d | audits %d | timeouts %d\n",
		humanize.Comma(int64(s.Tick)), s.LastDtSeconds, overrunSuffix(s.OverranBudget),
		s.FramesProcessed, s.MutationsApplied, s.SnapshotsSent, s.SanityAuditsSent, s.PeersTimedOut)
}

func overrunSuffix(overran bool) string {
	if overran {
		return " (overran budget)"
	}
	return ""
}

type bodyResponse struct {
	ID       uint32
	Name     string
	Type     byte
	Mass     float64
	ParentID uint32
	IsRoot   bool
}

func doBodies() {
	data, err := getJSON("/api/bodies")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	var bodies []bodyResponse
	if err := json.Unmarshal(data, &bodies); err != nil {
		fmt.Printf("protocol error: %v\n", err)
		return
	}
	fmt.Printf("%d bodies\n", len(bodies))
	for _, b := range bodies {
		role := "orbiting"
		if b.IsRoot {
			role = "root"
		}
		fmt.Printf("  [%d] %-16s mass=%s kg parent=%d (%s)\n", b.ID, b.Name, humanize.SIWithDigits(b.Mass, 3, "g"), b.ParentID, role)
	}
}

type entityResponse struct {
	ID               string
	Kind             byte
	NearestBodyID    uint32
	AOIID            uint32
	LastUpdateTimeMs uint64
	Connected        bool
}

func doEntities() {
	data, err := getJSON("/api/entities")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	var entities []entityResponse
	if err := json.Unmarshal(data, &entities); err != nil {
		fmt.Printf("protocol error: %v\n", err)
		return
	}
	fmt.Printf("%d entities\n", len(entities))
	for _, e := range entities {
		kind := "npc"
		if e.Kind == 0 {
			kind = "player"
		}
		fmt.Printf("  %s %-6s aoi=%d nearest_body=%d last_update=%s connected=%v\n",
			e.ID, kind, e.AOIID, e.NearestBodyID, humanize.Time(time.UnixMilli(int64(e.LastUpdateTimeMs))), e.Connected)
	}
}

type zoneResponse struct {
	ID          uint32
	Name        string
	Capacity    int
	PlayerCount int
	NPCCount    int
	Load        float64
	UpdateHz    float64
}

func doAOIs() {
	data, err := getJSON("/api/aois")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	var zones []zoneResponse
	if err := json.Unmarshal(data, &zones); err != nil {
		fmt.Printf("protocol error: %v\n", err)
		return
	}
	for _, z := range zones {
		fmt.Printf("  [%d] %-16s %s/%s occupants, load=%.2f update_hz=%.1f\n",
			z.ID, z.Name, humanize.Comma(int64(z.PlayerCount+z.NPCCount)), humanize.Comma(int64(z.Capacity)), z.Load, z.UpdateHz)
	}
}

func doSettings(args []string) {
	if len(args) == 0 || args[0] == "get" {
		data, err := getJSON("/api/settings")
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, data, "", "  "); err != nil {
			fmt.Println(string(data))
			return
		}
		fmt.Println(pretty.String())
		return
	}
	if args[0] != "set" || len(args) < 3 {
		fmt.Println("usage: settings [get | set <field> <value>]")
		return
	}
	data, err := getJSON("/api/settings")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		fmt.Printf("protocol error: %v\n", err)
		return
	}
	field, raw := args[1], args[2]
	if _, ok := fields[field]; !ok {
		fmt.Printf("unknown settings field %q\n", field)
		return
	}
	fields[field] = coerce(raw, fields[field])
	payload, _ := json.Marshal(fields)
	if err := postJSON("/api/settings", payload); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("settings mutation queued")
}

// coerce converts a raw console argument to match the JSON type already
// present for that settings field, since json.Marshal of a map[string]any
// needs a float64/bool/string matching the original shape.
func coerce(raw string, sample any) any {
	switch sample.(type) {
	case bool:
		return raw == "true" || raw == "1"
	case float64:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}

func doFrozen(frozen bool) {
	payload, _ := json.Marshal(map[string]bool{"Frozen": frozen})
	if err := postJSON("/api/frozen", payload); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func doSimSpeed(raw string) {
	speed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fmt.Printf("invalid multiplier %q\n", raw)
		return
	}
	payload, _ := json.Marshal(map[string]float64{"SimSpeed": speed})
	if err := postJSON("/api/sim_speed", payload); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func doSave() {
	if err := postJSON("/api/save", nil); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("snapshot saved")
}

func doEmergencyStop() {
	if err := postJSON("/api/emergency_stop", nil); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("emergency stop issued, simulation frozen")
}

func getJSON(path string) ([]byte, error) {
	resp, err := http.Get(ServerURL + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, string(body))
	}
	return body, nil
}

func postJSON(path string, payload []byte) error {
	resp, err := http.Post(ServerURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %s: %s", resp.Status, string(body))
	}
	return nil
}

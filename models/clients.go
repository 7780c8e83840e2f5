package models

import (
	"sort"
)

// ClientsCollection is the name of the device registry collection.
const ClientsCollection = "clients"

// ClientRecord is one device entry of the clients collection.
type ClientRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        *string         `json:"type"`
	Commands    []CommandRecord `json:"commands,omitempty"`
	FxaDeviceID *string         `json:"fxaDeviceId,omitempty"`
	Version     *string         `json:"version,omitempty"`
	Protocols   []string        `json:"protocols,omitempty"`
	FormFactor  *string         `json:"formfactor,omitempty"`
	OS          *string         `json:"os,omitempty"`
	AppPackage  *string         `json:"appPackage,omitempty"`
	Application *string         `json:"application,omitempty"`
	Device      *string         `json:"device,omitempty"`
	TTL         uint32          `json:"ttl"`
}

// CommandRecord is the wire form of a command queued for a device.
type CommandRecord struct {
	Name   string   `json:"command"`
	Args   []string `json:"args"`
	FlowID *string  `json:"flowID,omitempty"`
}

// CommandKind enumerates the commands this client understands. The order
// is also the sort order of outgoing commands.
type CommandKind int

const (
	CommandWipe CommandKind = iota
	CommandWipeAll
	CommandReset
	CommandResetAll
)

// Command is a parsed, comparable command. Engine is empty for the
// *All kinds.
type Command struct {
	Kind   CommandKind
	Engine string
}

// WipeCommand asks the target to wipe one engine's local data.
func WipeCommand(engine string) Command { return Command{Kind: CommandWipe, Engine: engine} }

// ResetCommand asks the target to reset one engine's sync metadata.
func ResetCommand(engine string) Command { return Command{Kind: CommandReset, Engine: engine} }

var (
	WipeAllCommand  = Command{Kind: CommandWipeAll}
	ResetAllCommand = Command{Kind: CommandResetAll}
)

// Less orders commands by kind, then by engine name.
func (c Command) Less(other Command) bool {
	if c.Kind != other.Kind {
		return c.Kind < other.Kind
	}
	return c.Engine < other.Engine
}

// AsCommand parses the record. Unknown commands, and engine commands
// without an argument, return false.
func (r CommandRecord) AsCommand() (Command, bool) {
	switch r.Name {
	case "wipeEngine":
		if len(r.Args) == 0 {
			return Command{}, false
		}
		return WipeCommand(r.Args[0]), true
	case "wipeAll":
		return WipeAllCommand, true
	case "resetEngine":
		if len(r.Args) == 0 {
			return Command{}, false
		}
		return ResetCommand(r.Args[0]), true
	case "resetAll":
		return ResetAllCommand, true
	default:
		return Command{}, false
	}
}

// Record converts a command to its wire form.
func (c Command) Record() CommandRecord {
	switch c.Kind {
	case CommandWipe:
		return CommandRecord{Name: "wipeEngine", Args: []string{c.Engine}}
	case CommandWipeAll:
		return CommandRecord{Name: "wipeAll", Args: []string{}}
	case CommandReset:
		return CommandRecord{Name: "resetEngine", Args: []string{c.Engine}}
	default:
		return CommandRecord{Name: "resetAll", Args: []string{}}
	}
}

// SortCommands sorts cmds in place using [Command.Less].
func SortCommands(cmds []Command) {
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Less(cmds[j]) })
}

// CommandStatus is the outcome of applying an incoming command.
type CommandStatus int

const (
	CommandApplied CommandStatus = iota
	CommandIgnored
	CommandUnsupported
)

func (s CommandStatus) String() string {
	switch s {
	case CommandApplied:
		return "applied"
	case CommandIgnored:
		return "ignored"
	default:
		return "unsupported"
	}
}

// DeviceType is the kind of device advertised in a client record.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceVR      DeviceType = "vr"
	DeviceTV      DeviceType = "tv"
)

// ParseDeviceType returns false for anything but the known types.
func ParseDeviceType(s string) (DeviceType, bool) {
	switch d := DeviceType(s); d {
	case DeviceDesktop, DeviceMobile, DeviceTablet, DeviceVR, DeviceTV:
		return d, true
	default:
		return "", false
	}
}

// Settings identify the local device to the clients engine.
type Settings struct {
	FxaDeviceID string
	DeviceName  string
	DeviceType  DeviceType
}

// RemoteClient is the summary of a client record kept after a sync for
// other engines (tabs needs device names and types).
type RemoteClient struct {
	FxaDeviceID *string
	DeviceName  string
	DeviceType  *DeviceType
}

// RemoteClientFromRecord summarises a client record.
func RemoteClientFromRecord(r ClientRecord) RemoteClient {
	rc := RemoteClient{DeviceName: r.Name}
	if r.FxaDeviceID != nil {
		id := *r.FxaDeviceID
		rc.FxaDeviceID = &id
	}
	if r.Type != nil {
		if dt, ok := ParseDeviceType(*r.Type); ok {
			rc.DeviceType = &dt
		}
	}
	return rc
}

// ClientData is handed to stores before they sync.
type ClientData struct {
	LocalClientID string
	RecentClients map[string]RemoteClient
}

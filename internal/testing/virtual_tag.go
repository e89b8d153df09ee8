package testing

import (
	"bytes"
	"encoding/binary"
	"sync"
)

// Memory banks in request order
const (
	BankReserved = 0
	BankEPC      = 1
	BankTID      = 2
	BankUser     = 3
	bankCount    = 4
)

const (
	statusAccessError    = 0x02
	statusUnknownCommand = 0x08
	statusInvalidParam   = 0x09
	statusMultipleTags   = 0x0B
)

// VirtualTag is a simulated Gen2 tag with four memory banks
type VirtualTag struct {
	Banks       [bankCount][]byte
	Locked      [bankCount]bool
	PermaLocked [bankCount]bool
	RSSI        *int8
	Present     bool
	Killed      bool
}

// NewVirtualTag creates a present tag with the given EPC, a TID and 32
// bytes of zeroed user memory. Both passwords start at zero.
func NewVirtualTag(epc, tid []byte) *VirtualTag {
	tag := &VirtualTag{Present: true}
	tag.Banks[BankReserved] = make([]byte, 8)
	tag.Banks[BankTID] = append([]byte(nil), tid...)
	tag.Banks[BankUser] = make([]byte, 32)
	tag.SetEPC(epc)
	return tag
}

// SetEPC rewrites the EPC bank as [CRC][PC][EPC] with a matching PC length
func (v *VirtualTag) SetEPC(epc []byte) {
	bank := make([]byte, 4, 4+len(epc))
	binary.BigEndian.PutUint16(bank[2:], uint16(len(epc)/2)<<11)
	v.Banks[BankEPC] = append(bank, epc...)
}

// PC returns the protocol control word
func (v *VirtualTag) PC() uint16 {
	return binary.BigEndian.Uint16(v.Banks[BankEPC][2:4])
}

// EPC returns the EPC as delimited by the PC length field
func (v *VirtualTag) EPC() []byte {
	n := int(v.PC()>>11) * 2
	end := 4 + n
	if end > len(v.Banks[BankEPC]) {
		end = len(v.Banks[BankEPC])
	}
	return append([]byte(nil), v.Banks[BankEPC][4:end]...)
}

// TID returns a copy of the TID bank
func (v *VirtualTag) TID() []byte {
	return append([]byte(nil), v.Banks[BankTID]...)
}

// KillPassword returns the kill password from the reserved bank
func (v *VirtualTag) KillPassword() uint32 {
	return binary.BigEndian.Uint32(v.Banks[BankReserved][0:4])
}

// AccessPassword returns the access password from the reserved bank
func (v *VirtualTag) AccessPassword() uint32 {
	return binary.BigEndian.Uint32(v.Banks[BankReserved][4:8])
}

func (v *VirtualTag) visible() bool {
	return v.Present && !v.Killed
}

// VirtualReader answers request frames for a field of virtual tags
type VirtualReader struct {
	Tags     []*VirtualTag
	Settings Settings
	// ShortWrite, when non-zero, is reported as the number of words written
	ShortWrite byte
	// ExtraCount is added to the tag count reported by inventory end frames
	ExtraCount int
	requests   map[byte]int
	mu         sync.Mutex
}

// NewVirtualReader creates a reader with the given tags in its field
func NewVirtualReader(tags ...*VirtualTag) *VirtualReader {
	return &VirtualReader{
		Tags:     tags,
		Settings: Settings{Power: 5, Region: 0, QStart: 4, QMin: 0, QMax: 15, Flags: 0x02},
		requests: make(map[byte]int),
	}
}

// Requests returns how many requests with cmd were handled
func (r *VirtualReader) Requests(cmd byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[cmd]
}

// AddTag places tag in the field
func (r *VirtualReader) AddTag(tag *VirtualTag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tags = append(r.Tags, tag)
}

// SetPresent moves tag into or out of the field
func (r *VirtualReader) SetPresent(tag *VirtualTag, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag.Present = present
}

// Handle returns the wire bytes the reader sends in reply to a request
func (r *VirtualReader) Handle(cmd byte, payload []byte) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[cmd]++

	switch cmd {
	case CmdGetReaderInfo:
		return BuildReaderInfoResponse()
	case CmdInventory:
		return r.inventory(payload)
	case CmdReadMemory:
		return r.read(payload)
	case CmdWriteMemory:
		return r.write(payload)
	case CmdGetSettings:
		return BuildSettingsResponse(r.Settings)
	case CmdSetPower, CmdSetRegion, CmdSetInventorySettings, CmdSetQ:
		return r.setting(cmd, payload)
	case CmdLock:
		return r.lock(payload)
	case CmdKill:
		return r.kill(payload)
	case CmdSetPassword:
		return r.setPassword(payload)
	default:
		return BuildErrorFrame(cmd, statusUnknownCommand)
	}
}

func (r *VirtualReader) inventory(payload []byte) []byte {
	if len(payload) < 4 || len(payload) != 4+int(payload[3]) {
		return BuildErrorFrame(CmdInventory, statusInvalidParam)
	}
	antenna := payload[0]
	if antenna == 0 {
		antenna = 1
	}
	bank, start, mask := int(payload[1]), int(payload[2]), payload[4:]

	var out []byte
	count := 0
	for _, tag := range r.Tags {
		if !tag.visible() {
			continue
		}
		if len(mask) > 0 {
			if bank >= bankCount || start+len(mask) > len(tag.Banks[bank]) ||
				!bytes.Equal(tag.Banks[bank][start:start+len(mask)], mask) {
				continue
			}
		}
		var tid []byte
		if r.Settings.Flags&0x04 != 0 {
			tid = tag.TID()
		}
		var rssi *int8
		if r.Settings.Flags&0x02 != 0 {
			rssi = tag.RSSI
			if rssi == nil {
				rssi = Int8(-60)
			}
		}
		out = append(out, BuildTagFrame(tag.EPC(), rssi, tid)...)
		count++
	}
	return append(out, BuildInventoryEnd(StatusOK, uint16(count+r.ExtraCount), antenna)...)
}

// selectTag resolves a selector the way a Gen2 select does: the mask is
// compared against EPC bank memory from word 2, independent of the PC
// length. An empty selector matches the only visible tag.
func (r *VirtualReader) selectTag(sel []byte) (*VirtualTag, byte) {
	var found *VirtualTag
	for _, tag := range r.Tags {
		if !tag.visible() {
			continue
		}
		if len(sel) > 0 && !bytes.HasPrefix(tag.Banks[BankEPC][4:], sel) {
			continue
		}
		if found != nil {
			return nil, statusMultipleTags
		}
		found = tag
	}
	if found == nil {
		return nil, StatusNoTag
	}
	return found, StatusOK
}

// prefixed splits [n][n bytes] off the front of b
func prefixed(b []byte) (field, rest []byte, ok bool) {
	if len(b) < 1 || len(b) < 1+int(b[0]) {
		return nil, nil, false
	}
	return b[1 : 1+int(b[0])], b[1+int(b[0]):], true
}

func (r *VirtualReader) read(payload []byte) []byte {
	if len(payload) < 5 {
		return BuildErrorFrame(CmdReadMemory, statusInvalidParam)
	}
	bank := int(payload[0])
	start := int(binary.BigEndian.Uint16(payload[1:3])) * 2
	n := int(payload[3]) * 2
	sel, rest, ok := prefixed(payload[4:])
	if !ok || len(rest) != 0 || bank >= bankCount {
		return BuildErrorFrame(CmdReadMemory, statusInvalidParam)
	}
	tag, status := r.selectTag(sel)
	if status != StatusOK {
		return BuildStatusResponse(CmdReadMemory, status)
	}
	if bank == BankReserved && tag.Locked[bank] {
		return BuildStatusResponse(CmdReadMemory, statusAccessError)
	}
	if start+n > len(tag.Banks[bank]) {
		return BuildStatusResponse(CmdReadMemory, StatusMemoryOverrun)
	}
	return BuildReadResponse(tag.Banks[bank][start : start+n])
}

func (r *VirtualReader) write(payload []byte) []byte {
	if len(payload) < 5 {
		return BuildErrorFrame(CmdWriteMemory, statusInvalidParam)
	}
	bank := int(payload[0])
	start := int(binary.BigEndian.Uint16(payload[1:3])) * 2
	sel, rest, ok := prefixed(payload[3:])
	if !ok {
		return BuildErrorFrame(CmdWriteMemory, statusInvalidParam)
	}
	data, rest, ok := prefixed(rest)
	if !ok || len(rest) != 0 || bank >= bankCount {
		return BuildErrorFrame(CmdWriteMemory, statusInvalidParam)
	}
	tag, status := r.selectTag(sel)
	if status != StatusOK {
		return BuildStatusResponse(CmdWriteMemory, status)
	}
	if tag.Locked[bank] || bank == BankTID {
		return BuildStatusResponse(CmdWriteMemory, StatusMemoryLocked)
	}
	if start+len(data) > len(tag.Banks[bank]) {
		if bank != BankEPC {
			return BuildStatusResponse(CmdWriteMemory, StatusMemoryOverrun)
		}
		grown := make([]byte, start+len(data))
		copy(grown, tag.Banks[bank])
		tag.Banks[bank] = grown
	}

	words := byte(len(data) / 2)
	if r.ShortWrite != 0 && r.ShortWrite < words {
		words = r.ShortWrite
	}
	copy(tag.Banks[bank][start:], data[:int(words)*2])
	return BuildWriteAck(words)
}

func (r *VirtualReader) setting(cmd byte, payload []byte) []byte {
	switch {
	case cmd == CmdSetPower && len(payload) == 1:
		r.Settings.Power = payload[0]
	case cmd == CmdSetRegion && len(payload) == 1:
		r.Settings.Region = payload[0]
	case cmd == CmdSetInventorySettings && len(payload) == 1:
		r.Settings.Flags = payload[0]
	case cmd == CmdSetQ && len(payload) == 3:
		r.Settings.QStart, r.Settings.QMin, r.Settings.QMax = payload[0], payload[1], payload[2]
	default:
		return BuildErrorFrame(cmd, statusInvalidParam)
	}
	return BuildAck(cmd)
}

func (r *VirtualReader) lock(payload []byte) []byte {
	if len(payload) < 7 {
		return BuildErrorFrame(CmdLock, statusInvalidParam)
	}
	action, bank := payload[0], int(payload[1])
	password := binary.BigEndian.Uint32(payload[2:6])
	sel, rest, ok := prefixed(payload[6:])
	if !ok || len(rest) != 0 || bank >= bankCount || action > 2 {
		return BuildErrorFrame(CmdLock, statusInvalidParam)
	}
	tag, status := r.selectTag(sel)
	if status != StatusOK {
		return BuildStatusResponse(CmdLock, status)
	}
	if tag.AccessPassword() != password {
		return BuildStatusResponse(CmdLock, StatusWrongPassword)
	}
	switch action {
	case 0:
		tag.Locked[bank] = true
	case 1:
		if tag.PermaLocked[bank] {
			return BuildStatusResponse(CmdLock, StatusMemoryLocked)
		}
		tag.Locked[bank] = false
	case 2:
		tag.Locked[bank] = true
		tag.PermaLocked[bank] = true
	}
	return BuildAck(CmdLock)
}

func (r *VirtualReader) kill(payload []byte) []byte {
	if len(payload) < 5 {
		return BuildErrorFrame(CmdKill, statusInvalidParam)
	}
	password := binary.BigEndian.Uint32(payload[0:4])
	sel, rest, ok := prefixed(payload[4:])
	if !ok || len(rest) != 0 {
		return BuildErrorFrame(CmdKill, statusInvalidParam)
	}
	tag, status := r.selectTag(sel)
	if status != StatusOK {
		return BuildStatusResponse(CmdKill, status)
	}
	if password == 0 || tag.KillPassword() != password {
		return BuildStatusResponse(CmdKill, StatusWrongPassword)
	}
	tag.Killed = true
	return BuildAck(CmdKill)
}

func (r *VirtualReader) setPassword(payload []byte) []byte {
	if len(payload) < 10 {
		return BuildErrorFrame(CmdSetPassword, statusInvalidParam)
	}
	which := payload[0]
	current := binary.BigEndian.Uint32(payload[1:5])
	sel, rest, ok := prefixed(payload[9:])
	if !ok || len(rest) != 0 || which > 1 {
		return BuildErrorFrame(CmdSetPassword, statusInvalidParam)
	}
	tag, status := r.selectTag(sel)
	if status != StatusOK {
		return BuildStatusResponse(CmdSetPassword, status)
	}
	if tag.AccessPassword() != current {
		return BuildStatusResponse(CmdSetPassword, StatusWrongPassword)
	}
	if tag.Locked[BankReserved] {
		return BuildStatusResponse(CmdSetPassword, StatusMemoryLocked)
	}
	offset := 4
	if which == 1 {
		offset = 0
	}
	copy(tag.Banks[BankReserved][offset:offset+4], payload[5:9])
	return BuildAck(CmdSetPassword)
}

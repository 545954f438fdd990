package telnet

// The subset of the Telnet protocol implemented here is what BBS-oriented
// clients (SyncTERM, NetRunner, modern terminal emulators pointed at a
// telnet port) actually exercise: option negotiation for ECHO and
// SUPPRESS-GO-AHEAD, plus TERMINAL-TYPE and NAWS subnegotiation.
//
// RFCs of particular interest:
// - RFC 854  : Telnet Protocol Specification
// - RFC 857  : Telnet Echo Option
// - RFC 858  : Telnet Suppress Go Ahead Option
// - RFC 1073 : Telnet Window Size Option (NAWS)
// - RFC 1091 : Telnet Terminal-Type Option

const (
	// RFC 854 command bytes.
	SE   byte = 240 // Subnegotiation End
	NOP  byte = 241 // No Operation
	DM   byte = 242 // Data Mark
	BRK  byte = 243 // Break
	IP   byte = 244 // Interrupt Process
	AO   byte = 245 // Abort Output
	AYT  byte = 246 // Are You There?
	EC   byte = 247 // Erase Character
	EL   byte = 248 // Erase Line
	GA   byte = 249 // Go Ahead
	SB   byte = 250 // Subnegotiation Begin
	WILL byte = 251
	WONT byte = 252
	DO   byte = 253
	DONT byte = 254
	IAC  byte = 255 // Interpret As Command

	// Subnegotiation sub-commands.
	IS   byte = 0
	SEND byte = 1

	// Options we negotiate.
	Echo  byte = 1  // RFC 857
	SGA   byte = 3  // RFC 858
	TType byte = 24 // RFC 1091
	NAWS  byte = 31 // RFC 1073
)

// CommandNames maps Telnet command bytes to their string representation,
// used for negotiation debug logging.
var CommandNames = map[byte]string{
	SE:   "SE",
	NOP:  "NOP",
	DM:   "DM",
	BRK:  "BRK",
	IP:   "IP",
	AO:   "AO",
	AYT:  "AYT",
	EC:   "EC",
	EL:   "EL",
	GA:   "GA",
	SB:   "SB",
	WILL: "WILL",
	WONT: "WONT",
	DO:   "DO",
	DONT: "DONT",
	IAC:  "IAC",
}

// OptionNames maps the option bytes we negotiate to readable names.
var OptionNames = map[byte]string{
	Echo:  "Echo",
	SGA:   "SGA",
	TType: "TType",
	NAWS:  "NAWS",
}

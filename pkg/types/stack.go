package types

// Stack selects the protocol stack a message travels on
type Stack uint8

const (
	StackSAE  Stack = iota // WSMP + IEEE 1609.2 + J2735
	StackETSI              // GeoNetworking + BTP + CAM/DENM
)

// String returns string representation of Stack
func (s Stack) String() string {
	switch s {
	case StackSAE:
		return "SAE"
	case StackETSI:
		return "ETSI"
	default:
		return "Unknown"
	}
}

// ParseStack maps a configuration name to a Stack
func ParseStack(name string) (Stack, bool) {
	switch name {
	case "sae", "SAE", "wsmp":
		return StackSAE, true
	case "etsi", "ETSI", "its":
		return StackETSI, true
	default:
		return 0, false
	}
}

// ItsMessageID is the messageID field of the ETSI ItsPduHeader
type ItsMessageID uint8

// ItsPduHeader messageID values
const (
	ItsMessageDENM ItsMessageID = 1
	ItsMessageCAM  ItsMessageID = 2
)

// String returns string representation of ItsMessageID
func (id ItsMessageID) String() string {
	switch id {
	case ItsMessageDENM:
		return "DENM"
	case ItsMessageCAM:
		return "CAM"
	default:
		return "Unknown"
	}
}

// Package protocol holds wire-level constants shared by the locator codec and
// its collaborators.
package protocol

const (
	// UDPDefaultMTU is the payload size assumed for a single physical packet.
	UDPDefaultMTU = 1432

	// FragmentCountMax is the maximum number of fragments a packet may be split into.
	FragmentCountMax = 8

	// PacketSizeMax is the largest reassembled packet. Buffers used to marshal
	// anything that must fit in one packet are bounded by this size.
	PacketSizeMax = UDPDefaultMTU * FragmentCountMax
)

// Package frame encodes and validates link-layer frames.
//
// Wire layout, big-endian:
//
//	+------+-----------+-----------+---------+-------------------+
//	| kind | seq (u32) | len (u16) | payload | crc (Width bytes) |
//	+------+-----------+-----------+---------+-------------------+
//
// The checksum is computed over the header and payload with a
// crc.Generator shared by both ends. Delimiting and byte stuffing belong
// to the transport carrying the frames; Decode expects one complete span.
package frame

// Package devicenet accepts persistent TCP links from field sensors.
//
// Each connection is read by a Framer which delimits raw frames.
// Frames are decoded by protocol.Decoder strictly in arrival order,
// reporting messages are handed to ForwardFunc,
// and the device gets a +TOPSAIL acknowledgment according to AckPolicy.
// Decode errors are contained per frame, only connection read errors close the link.
package devicenet

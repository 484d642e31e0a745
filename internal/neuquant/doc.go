// Package neuquant learns a color palette for an image with the NeuQuant
// self-organizing map and maps pixels onto it.
//
// A palette is learned by Train from a buffer of RGB triples. Training is
// deterministic: the same pixels and options always produce the same
// palette. Every Network returned by Train owns its own lookup index, so
// networks for different frames can be trained concurrently.
//
// # Algorithm
//
// The network holds up to 256 neurons, each a (B,G,R) triple in fixed point,
// initialized as an even gray ramp. For every sampled pixel:
//
//  1. Contest: the neuron with the smallest Manhattan distance, corrected
//     by a per-neuron bias, wins. Frequently chosen neurons accumulate a
//     penalty so rarely used neurons get a chance to learn.
//  2. The winner moves towards the sample by the learning rate alpha.
//  3. Neurons within the current radius move towards the sample, weighted
//     by their distance from the winner.
//  4. Every 1/100th of the run alpha and the radius decay.
//
// After training the network is sorted by green and indexed so that Map can
// search outwards from the closest green value and stop early.
//
// # Usage
//
//	net, err := neuquant.Train(rgb, neuquant.Options{Sample: 10})
//	if err != nil {
//	    return err
//	}
//	table := net.ColorMap()
//	idx := net.Map(255, 0, 0)
package neuquant

// Package neat provides a Go implementation of the NeuroEvolution of Augmenting Topologies (NEAT) algorithm.
//
// NEAT evolves both the weights and the structure of feed-forward neural networks.
// Genomes grow by adding connections and splitting them with hidden nodes; historical
// innovation numbers let crossover align genes of different topologies, and speciation
// protects new structure while it is still being tuned.
//
// The engine lives in package neat and the compiled networks in package neat/nn.
// Fitness evaluations run concurrently on a bounded worker pool; everything else in a
// generation runs on the caller's goroutine.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("xor-config.ini")
//	if err != nil {
//		return err
//	}
//
//	// Generation zero is created and evaluated here.
//	pop, err := neat.NewPopulation(config, func(net *nn.Network) float64 {
//		out, _ := net.FeedForward(inputs)
//		return score(out)
//	}, neat.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
//	for pop.Generation < 100 {
//		winner, err := pop.RunGeneration()
//		if errors.Is(err, neat.ErrExtinct) {
//			// Every species stagnated and reset_on_extinction is off.
//			break
//		} else if err != nil {
//			return err
//		}
//		if winner != nil {
//			return neat.EncodeGenome(os.Stdout, winner.Genome)
//		}
//	}
package neat

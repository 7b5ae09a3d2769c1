//go:build neatdebug

package neat

// checkedBuild makes every AddGene re-validate the whole genome.
const checkedBuild = true

//go:build !neatdebug

package neat

const checkedBuild = false

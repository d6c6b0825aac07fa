//go:build !race

package metrics

const raceBuild = false

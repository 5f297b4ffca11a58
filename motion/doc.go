// Package motion renders move steps and robot-side computations into TMscript text.
//
// Everything in this package is pure text generation. The rendered scripts are sent
// through the listen node by the controller package.
package motion

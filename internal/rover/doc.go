// Package rover simulates the robot the motion core drives: a motor plant
// for the speed loop and a kinematic body that executes drive and turn
// commands and publishes the resulting sensor events to a sensors.Board.
//
// Nothing here runs on its own. Callers advance the models with Step, so a
// simulation can run faster than real time and stay deterministic.
package rover

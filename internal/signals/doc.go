// Package signals holds the field input model for StackPark Core.
//
// Interlock states, subsystem health, bay detection, the platform load
// cell, and the vehicle measurement gantry all arrive asynchronously from
// field bridges. The Store accumulates the latest value of each input;
// the control loop samples one consistent Inputs snapshot per cycle.
package signals

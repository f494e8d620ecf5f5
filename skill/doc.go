// Package skill defines the uniform contract for specialist agents: a closed
// Skill interface with an explicit Execute method, registered into the bus
// through a descriptor adapter. Domain prompt content stays with the skill
// author; this package only owns the execution and registration mechanics.
package skill

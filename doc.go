// Package armctl teleoperates a 6-axis robot arm with a 3D mouse, records
// command sequences and plays them back.
//
// # Installation
//
//	go install github.com/gwillem/armctl/cmd/armctl@latest
//
// # Usage
//
// Write a configuration file (arm address, tool, optional serial-bus gripper):
//
//	armctl setup
//
// Start an interactive session. The 3D mouse jogs the arm; keys record
// poses, drive the gripper and save, load or play sequences:
//
//	armctl run
//
// Play a saved sequence without the terminal UI, or validate files:
//
//	armctl play pick.seq
//	armctl check pick.seq place.seq
//
// run and play accept --sim to use the in-process simulator.
//
// # Sequence files
//
// One command per line:
//
//	[x, y, z, roll, pitch, yaw, radius, speed]   move to a pose
//	"open" | "close" | "stop"                    gripper
//	["pause", seconds]                           arm-side pause
//	["include", "other.seq"]                     play another file
//
// # Arm bridge protocol
//
// Unless --sim is given or the config "arm" field is "sim", armctl dials
// that field as a websocket URL.
// The process behind it hosts the vendor SDK. Each call is a JSON text
// frame answered by one frame with the same id; frames with another id are
// skipped. Code 0 is success, anything else is the controller status code.
//
//	-> {"id":"<uuid>","method":"get_position"}
//	<- {"id":"<uuid>","code":0,"result":[200,0,200,180,0,0]}
//
// On connect armctl sends set_cartesian_velo_continuous {"on":true}. Calls
// time out after 5s unless ctx ends sooner, and a failed read or write drops the connection.
//
//	method                     params                               result
//	motion_ready               -                                    bool
//	has_err_warn               -                                    bool
//	clean_error, clean_warn    -                                    -
//	motion_enable              {"enable":bool}                      -
//	get_mode / set_mode        {"mode":0|5}                         int
//	get_state / set_state      {"state":0|4}                        int
//	set_tcp_offset             {"offset":[6]}                       -
//	set_tcp_load               {"weight":kg,"center_of_gravity":[3]} -
//	open/close/stop_lite6_gripper  -                                -
//	set_position               {"pose":[6],"radius","speed","wait":false} -
//	vc_set_cartesian_velocity  {"speeds":[6],"duration":seconds}    -
//	set_pause_time             {"seconds":s}                        -
//	get_position               -                                    [6]
//	get_cmdnum                 -                                    int
//
// Poses are x, y, z in mm and roll, pitch, yaw in degrees.
//
// # Packages
//
//   - cmd/armctl: CLI with run, play, check, setup and ports commands
//   - pkg/sequence: Commands, sequences and the file format
//   - pkg/program: Command interpreter and playback supervisor
//   - pkg/teleop: Velocity mapper and the operator session loop
//   - pkg/arm: Arm interface, with a simulator and a websocket bridge client
//   - pkg/input: Operator input, including the spacenavd 3D mouse
//   - pkg/robot: Configuration, tool profiles and the serial-bus gripper
package armctl

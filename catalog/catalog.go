// Package catalog is the Device Catalog: a compiled-in table mapping a
// 12-bit product identifier to a device family, and a second table mapping
// a family to the flash-size and unique-ID register addresses, per ST
// application note AN2606. It is data, not code — a family that the table
// doesn't know about is a legitimate outcome (Lookup returns false), not an
// error to paper over.
package catalog

// Registers holds the family-specific introspection register addresses.
type Registers struct {
	FlashSizeAddr uint32
	UIDAddr       uint32
}

// EraseDialect selects which erase command opcode (and index width) a
// family speaks.
type EraseDialect int

const (
	// DialectLegacy is opcode 0x43: one-byte page indices, max 255 pages.
	DialectLegacy EraseDialect = iota
	// DialectExtended is opcode 0x44: two-byte page indices, max 65535.
	DialectExtended
)

// productIDToFamily maps the 12-bit GetID product identifier to a family
// tag, per the device table in AN2606. Several ids map to the same family;
// parts within one family share flash-size/UID register layout regardless
// of exact part number, so the family tag is all the introspection this
// catalog gates needs.
var productIDToFamily = map[uint16]string{
	0x412: "F1", // STM32F10xxx Medium-density
	0x410: "F1", // STM32F10xxx Medium-density value line
	0x414: "F1", // STM32F10xxx High-density
	0x418: "F1", // STM32F105/F107 (connectivity line)
	0x420: "F1", // STM32F10xxx Medium-density value line
	0x428: "F1", // STM32F10xxx High-density value line

	0x411: "F2", // STM32F2xxxx

	0x422: "F3", // STM32F303xB/C, STM32F358xx
	0x432: "F3", // STM32F37xxx
	0x438: "F3", // STM32F303x4/6/8, STM32F328xx
	0x446: "F3", // STM32F303xD/E, STM32F398xx

	0x413: "F4", // STM32F405xx/07xx, STM32F415xx/17xx
	0x419: "F4", // STM32F42xxx, STM32F43xxx
	0x423: "F4", // STM32F401xB/C
	0x433: "F4", // STM32F401xD/E
	0x458: "F4", // STM32F410xx
	0x463: "F4", // STM32F413xx/423xx

	0x440: "F0", // STM32F05x
	0x444: "F0", // STM32F03x
	0x445: "F0", // STM32F04x
	0x448: "F0", // STM32F07x

	0x449: "F7", // STM32F74xxx/75xxx
	0x451: "F7", // STM32F76xxx/77xxx

	0x450: "H7", // STM32H74x/75x
	0x480: "H7", // STM32H7Ax/7Bx

	0x417: "L0", // STM32L0x1
	0x425: "L0", // STM32L031/041
	0x447: "L0", // STM32L07x/08x

	0x415: "L4", // STM32L475/476/486
	0x435: "L4", // STM32L43x/44x
	0x461: "L4", // STM32L496/4A6

	0x460: "G0", // STM32G07x/08x
	0x466: "G0", // STM32G03x/04x
	0x467: "G0", // STM32G0Bx/0Cx

	0x497: "WL", // STM32WLE5/WL55

	0x110: "BlueNRG", // AN4872: BlueNRG-1 UART bootloader
	0x220: "BlueNRG", // AN4872: BlueNRG-2 UART bootloader

	0x479: "W7500", // Wiznet W7500 (Cortex-M0 + TCP/IP hardware stack)
}

// familyRegisters maps each known family to its introspection registers.
// BlueNRG and W7500 intentionally have no entry: AN4872's BlueNRG
// bootloader exposes unique-ID/flash-size through vendor-specific commands
// rather than a Read-Memory-addressable register, and W7500's register map
// was not available at catalog-compile time — both are left unknown rather
// than guessed, per spec.
var familyRegisters = map[string]Registers{
	"F0": {FlashSizeAddr: 0x1FFFF7CC, UIDAddr: 0x1FFFF7AC},
	"F1": {FlashSizeAddr: 0x1FFFF7E0, UIDAddr: 0x1FFFF7E8},
	"F2": {FlashSizeAddr: 0x1FFF7A22, UIDAddr: 0x1FFF7A10},
	"F3": {FlashSizeAddr: 0x1FFFF7CC, UIDAddr: 0x1FFFF7AC},
	"F4": {FlashSizeAddr: 0x1FFF7A22, UIDAddr: 0x1FFF7A10},
	"F7": {FlashSizeAddr: 0x1FF0F442, UIDAddr: 0x1FF0F420},
	"H7": {FlashSizeAddr: 0x1FF1E880, UIDAddr: 0x1FF1E800},
	"L0": {FlashSizeAddr: 0x1FF8007C, UIDAddr: 0x1FF80050},
	"L4": {FlashSizeAddr: 0x1FFF75E0, UIDAddr: 0x1FFF7590},
	"G0": {FlashSizeAddr: 0x1FFF75E0, UIDAddr: 0x1FFF7590},
	"WL": {FlashSizeAddr: 0x1FFF75E0, UIDAddr: 0x1FFF7590},
}

// Lookup returns the family tag for a 12-bit product id, and whether one
// was found.
func Lookup(productID uint16) (family string, ok bool) {
	family, ok = productIDToFamily[productID&0x0FFF]
	return family, ok
}

// RegistersFor returns the flash-size/UID register addresses for a family,
// and whether the family has a known register layout. A family absent from
// familyRegisters (BlueNRG, W7500) is a legitimate "known family, unknown
// registers" state distinct from an unknown product id altogether.
func RegistersFor(family string) (Registers, bool) {
	r, ok := familyRegisters[family]
	return r, ok
}

// Families returns every family tag the catalog knows about, sorted is not
// guaranteed — callers that need a stable order should sort the result
// themselves.
func Families() []string {
	seen := make(map[string]bool, len(productIDToFamily))
	out := make([]string, 0, len(productIDToFamily))
	for _, f := range productIDToFamily {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

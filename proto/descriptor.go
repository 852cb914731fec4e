package proto

import "github.com/flashtool/stm32loader/catalog"

// Descriptor is populated during bootloader activation: version and
// protection status from Get/GetVersion, product id from GetID, and
// family/erase-dialect/register addresses inferred from the catalog once
// the product id is known.
type Descriptor struct {
	BootloaderVersion byte
	ReadProtection    byte
	ProductID         uint16
	SupportedCommands CommandSet

	Family        string
	EraseDialect  catalog.EraseDialect
	FlashSizeAddr *uint32
	UIDAddr       *uint32
}

// resolveFamily fills in EraseDialect unconditionally from
// SupportedCommands, then Family/FlashSizeAddr/UIDAddr from the catalog. A
// product id with no catalog entry leaves Family empty; engine
// read/write/erase still work against caller-supplied addresses, but
// family-gated introspection (GetFlashSizeBytes/GetUID) then returns
// stmerr.UnknownFamily rather than guessing, per spec. Erase dialect
// selection does not depend on family resolution at all — per §4.3 it is
// driven solely by whether the device advertised opcode 0x44 in its Get
// response — so it must be resolved before the catalog lookup, not after,
// or an unrecognized product id would wrongly leave a device stuck on the
// legacy dialect's zero value even though it advertised extended erase.
func (d *Descriptor) resolveFamily() {
	// Prefer the extended erase dialect whenever the device advertised
	// opcode 0x44 in its Get response; only fall back to legacy when it
	// wasn't offered.
	if d.SupportedCommands.Has(OpExtendedErase) {
		d.EraseDialect = catalog.DialectExtended
	} else {
		d.EraseDialect = catalog.DialectLegacy
	}

	family, ok := catalog.Lookup(d.ProductID)
	if !ok {
		return
	}
	d.Family = family

	if regs, ok := catalog.RegistersFor(family); ok {
		flashAddr := regs.FlashSizeAddr
		uidAddr := regs.UIDAddr
		d.FlashSizeAddr = &flashAddr
		d.UIDAddr = &uidAddr
	}
}

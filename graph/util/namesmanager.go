/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import (
	"encoding/binary"
	"sync"
)

/*
PrefixCode is the prefix for entries storing codes
*/
const PrefixCode = "\x00"

/*
PrefixName is the prefix for entries storing names
*/
const PrefixName = "\x01"

/*
PrefixCounter is the prefix for counter entries
*/
const PrefixCounter = "\x02"

/*
PrefixLabel is the prefix for label related entries
*/
const PrefixLabel = "\x01"

/*
PrefixType is the prefix for relationship type related entries
*/
const PrefixType = "\x02"

/*
NamesManager data structure
*/
type NamesManager struct {
	nameDB map[string]string // Database storing names
	lock   *sync.RWMutex     // Lock for the name database
}

/*
NewNamesManager creates a new names manager instance.
*/
func NewNamesManager(nameDB map[string]string) *NamesManager {
	return &NamesManager{nameDB, &sync.RWMutex{}}
}

/*
EncodeLabel encodes a label as a 16 bit number. If the create flag is set to
false then a new entry will not be created if it does not exist. Codes start
at 1 - a 0 code means the label is not known.
*/
func (nm *NamesManager) EncodeLabel(name string, create bool) uint16 {
	return nm.encode(PrefixLabel, name, create)
}

/*
DecodeLabel decodes a label from a given 16 bit number.
*/
func (nm *NamesManager) DecodeLabel(code uint16) string {
	return nm.decode(PrefixLabel, code)
}

/*
EncodeType encodes a relationship type as a 16 bit number. If the create flag
is set to false then a new entry will not be created if it does not exist.
*/
func (nm *NamesManager) EncodeType(name string, create bool) uint16 {
	return nm.encode(PrefixType, name, create)
}

/*
DecodeType decodes a relationship type from a given 16 bit number.
*/
func (nm *NamesManager) DecodeType(code uint16) string {
	return nm.decode(PrefixType, code)
}

/*
Count returns the number of known names for a given prefix.
*/
func (nm *NamesManager) Count(prefix string) uint16 {
	nm.lock.RLock()
	defer nm.lock.RUnlock()

	if val, ok := nm.nameDB[PrefixCounter+prefix]; ok {
		return binary.LittleEndian.Uint16([]byte(val))
	}

	return 0
}

/*
encode encodes a name to a code.
*/
func (nm *NamesManager) encode(prefix string, name string, create bool) uint16 {
	codekey := PrefixCode + prefix + name

	nm.lock.RLock()
	code, ok := nm.nameDB[codekey]
	nm.lock.RUnlock()

	if ok {
		return binary.LittleEndian.Uint16([]byte(code))
	} else if !create {
		return 0
	}

	nm.lock.Lock()
	defer nm.lock.Unlock()

	// Check again - another writer might have been quicker

	if code, ok = nm.nameDB[codekey]; !ok {
		code = nm.newCode(prefix)
		nm.nameDB[codekey] = code
		nm.nameDB[PrefixName+prefix+code] = name
	}

	return binary.LittleEndian.Uint16([]byte(code))
}

/*
decode decodes a name from a code.
*/
func (nm *NamesManager) decode(prefix string, code uint16) string {
	codeStr := make([]byte, 2)
	binary.LittleEndian.PutUint16(codeStr, code)

	nm.lock.RLock()
	defer nm.lock.RUnlock()

	return nm.nameDB[PrefixName+prefix+string(codeStr)]
}

/*
newCode generates a new 16 bit number for the names map. Must be called
with the write lock held.
*/
func (nm *NamesManager) newCode(prefix string) string {
	var resnum uint16

	countAttr := PrefixCounter + prefix

	// Calculate new code

	if val, ok := nm.nameDB[countAttr]; !ok {
		resnum = 1
	} else {
		resnum = binary.LittleEndian.Uint16([]byte(val))
		resnum++
	}

	resStr := make([]byte, 2)
	binary.LittleEndian.PutUint16(resStr, resnum)
	res := string(resStr)

	// Write back

	nm.nameDB[countAttr] = res

	return res
}

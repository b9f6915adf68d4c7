// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ethlog

// Event fragments of the contract ABIs. Only the events that are indexed
// are listed.

const BaseRegistrarABI = `[
  {"anonymous":false,"name":"NameRegistered","type":"event","inputs":[
    {"indexed":true,"name":"id","type":"uint256"},
    {"indexed":true,"name":"owner","type":"address"},
    {"indexed":false,"name":"expires","type":"uint256"}]},
  {"anonymous":false,"name":"NameRenewed","type":"event","inputs":[
    {"indexed":true,"name":"id","type":"uint256"},
    {"indexed":false,"name":"expires","type":"uint256"}]},
  {"anonymous":false,"name":"Transfer","type":"event","inputs":[
    {"indexed":true,"name":"from","type":"address"},
    {"indexed":true,"name":"to","type":"address"},
    {"indexed":true,"name":"tokenId","type":"uint256"}]}
]`

const RegistrarControllerABI = `[
  {"anonymous":false,"name":"NameRegistered","type":"event","inputs":[
    {"indexed":false,"name":"name","type":"string"},
    {"indexed":true,"name":"label","type":"bytes32"},
    {"indexed":true,"name":"owner","type":"address"},
    {"indexed":false,"name":"cost","type":"uint256"},
    {"indexed":false,"name":"expires","type":"uint256"}]},
  {"anonymous":false,"name":"NameRenewed","type":"event","inputs":[
    {"indexed":false,"name":"name","type":"string"},
    {"indexed":true,"name":"label","type":"bytes32"},
    {"indexed":false,"name":"cost","type":"uint256"},
    {"indexed":false,"name":"expires","type":"uint256"}]}
]`

const RegistryABI = `[
  {"anonymous":false,"name":"NewOwner","type":"event","inputs":[
    {"indexed":true,"name":"node","type":"bytes32"},
    {"indexed":true,"name":"label","type":"bytes32"},
    {"indexed":false,"name":"owner","type":"address"}]}
]`

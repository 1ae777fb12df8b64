package escrow

// Contract ABI fragments for the escrow factory and the escrow instances.
// The immutables tuple layout here must match the on-chain structs
// bit-for-bit: it is hashed for CREATE2 salts and re-presented verbatim on
// every withdraw and cancel call.

// FactoryABI covers the escrow factory surface the resolver uses: source and
// destination escrow deployment, the implementation address getters used for
// deterministic address derivation, and the source deployment event.
const FactoryABI = `[
  {
    "type": "function",
    "name": "deploySrc",
    "stateMutability": "payable",
    "inputs": [
      {
        "name": "immutables",
        "type": "tuple",
        "components": [
          {"name": "orderHash", "type": "bytes32"},
          {"name": "hashlock", "type": "bytes32"},
          {"name": "maker", "type": "address"},
          {"name": "taker", "type": "address"},
          {"name": "token", "type": "address"},
          {"name": "amount", "type": "uint256"},
          {"name": "safetyDeposit", "type": "uint256"},
          {"name": "timelocks", "type": "uint256"}
        ]
      },
      {"name": "order", "type": "bytes"},
      {"name": "signature", "type": "bytes"},
      {"name": "takerTraits", "type": "uint256"},
      {"name": "amount", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "deployDst",
    "stateMutability": "payable",
    "inputs": [
      {
        "name": "dstImmutables",
        "type": "tuple",
        "components": [
          {"name": "orderHash", "type": "bytes32"},
          {"name": "hashlock", "type": "bytes32"},
          {"name": "maker", "type": "address"},
          {"name": "taker", "type": "address"},
          {"name": "token", "type": "address"},
          {"name": "amount", "type": "uint256"},
          {"name": "safetyDeposit", "type": "uint256"},
          {"name": "timelocks", "type": "uint256"}
        ]
      },
      {"name": "srcCancellationTimestamp", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "ESCROW_SRC_IMPLEMENTATION",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "address"}]
  },
  {
    "type": "function",
    "name": "ESCROW_DST_IMPLEMENTATION",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "address"}]
  },
  {
    "type": "event",
    "name": "SrcEscrowCreated",
    "anonymous": false,
    "inputs": [
      {
        "name": "srcImmutables",
        "type": "tuple",
        "indexed": false,
        "components": [
          {"name": "orderHash", "type": "bytes32"},
          {"name": "hashlock", "type": "bytes32"},
          {"name": "maker", "type": "address"},
          {"name": "taker", "type": "address"},
          {"name": "token", "type": "address"},
          {"name": "amount", "type": "uint256"},
          {"name": "safetyDeposit", "type": "uint256"},
          {"name": "timelocks", "type": "uint256"}
        ]
      },
      {
        "name": "dstImmutablesComplement",
        "type": "tuple",
        "indexed": false,
        "components": [
          {"name": "maker", "type": "address"},
          {"name": "amount", "type": "uint256"},
          {"name": "token", "type": "address"},
          {"name": "safetyDeposit", "type": "uint256"}
        ]
      }
    ]
  }
]`

// EscrowABI covers the calls made against a deployed escrow instance.
const EscrowABI = `[
  {
    "type": "function",
    "name": "withdraw",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "secret", "type": "bytes32"},
      {
        "name": "immutables",
        "type": "tuple",
        "components": [
          {"name": "orderHash", "type": "bytes32"},
          {"name": "hashlock", "type": "bytes32"},
          {"name": "maker", "type": "address"},
          {"name": "taker", "type": "address"},
          {"name": "token", "type": "address"},
          {"name": "amount", "type": "uint256"},
          {"name": "safetyDeposit", "type": "uint256"},
          {"name": "timelocks", "type": "uint256"}
        ]
      }
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "cancel",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "immutables", "type": "tuple", "components": [
        {"name": "orderHash", "type": "bytes32"},
        {"name": "hashlock", "type": "bytes32"},
        {"name": "maker", "type": "address"},
        {"name": "taker", "type": "address"},
        {"name": "token", "type": "address"},
        {"name": "amount", "type": "uint256"},
        {"name": "safetyDeposit", "type": "uint256"},
        {"name": "timelocks", "type": "uint256"}
      ]}
    ],
    "outputs": []
  }
]`

// srcEscrowCreatedEvent is the name of the factory deployment event the
// resolver recovers canonical immutables from.
const srcEscrowCreatedEvent = "SrcEscrowCreated"

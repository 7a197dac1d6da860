package chain

// Only the view functions the watcher reads are declared.

const registryABI = `[
  {"type":"function","name":"sharedStakeMultiplier","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"winnerStakeMultiplier","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"loserStakeMultiplier","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"MULTIPLIER_DIVISOR","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"challengePeriodDuration","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"submissionBaseDeposit","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"removalBaseDeposit","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"submissionChallengeBaseDeposit","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"removalChallengeBaseDeposit","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"arbitrator","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"arbitratorExtraData","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes"}]}
]`

const arbitratorABI = `[
  {"type":"function","name":"arbitrationCost","stateMutability":"view","inputs":[{"name":"_extraData","type":"bytes"}],"outputs":[{"name":"cost","type":"uint256"}]},
  {"type":"function","name":"appealCost","stateMutability":"view","inputs":[{"name":"_disputeID","type":"uint256"},{"name":"_extraData","type":"bytes"}],"outputs":[{"name":"cost","type":"uint256"}]}
]`
